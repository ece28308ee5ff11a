package mail

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const maxTemplateBytes = 512 << 10

// Test seams.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Template is a raw template object.
type Template struct {
	Key         string
	Body        []byte
	ContentType string
}

// IsHTML reports whether the object is an HTML document, judged by content
// type or by key extension.
func (t Template) IsHTML() bool {
	if strings.Contains(strings.ToLower(t.ContentType), "html") {
		return true
	}
	ext := strings.ToLower(path.Ext(t.Key))
	return strings.Contains(ext, "html") || ext == ".htm"
}

// TemplateSource loads templates by key.
type TemplateSource interface {
	Fetch(ctx context.Context, key string) (Template, error)
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3TemplateSource reads templates from an S3-compatible bucket.
type S3TemplateSource struct {
	client objectGetter
	bucket string
}

// NewS3TemplateSource builds an S3 client for the configured endpoint with
// static credentials and path-style addressing.
func NewS3TemplateSource(ctx context.Context, cfg Config) (*S3TemplateSource, error) {
	if !cfg.TemplatesEnabled() {
		return nil, fmt.Errorf("%w: template bucket not configured", ErrConfig)
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.AccessKeySecret,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("mail: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3TemplateSource{client: client, bucket: cfg.Bucket}, nil
}

// Fetch implements TemplateSource.
func (s *S3TemplateSource) Fetch(ctx context.Context, key string) (Template, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Template{}, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxTemplateBytes+1))
	if err != nil {
		return Template{}, fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}
	if len(body) > maxTemplateBytes {
		return Template{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTemplate, key, maxTemplateBytes)
	}

	return Template{Key: key, Body: body, ContentType: aws.ToString(out.ContentType)}, nil
}

// StaticTemplateSource serves templates from memory. It backs local
// development and tests.
type StaticTemplateSource struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewStaticTemplateSource returns a source holding tpls keyed by Template.Key.
func NewStaticTemplateSource(tpls ...Template) *StaticTemplateSource {
	s := &StaticTemplateSource{templates: make(map[string]Template, len(tpls))}
	for _, t := range tpls {
		s.templates[t.Key] = t
	}
	return s
}

// Fetch implements TemplateSource.
func (s *StaticTemplateSource) Fetch(_ context.Context, key string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[key]
	if !ok {
		return Template{}, fmt.Errorf("%w: no template %s", ErrStorage, key)
	}
	return t, nil
}
