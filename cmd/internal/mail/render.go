package mail

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// VerifyEmailValues fills the verification template.
type VerifyEmailValues struct {
	AppName         string
	Username        string
	VerificationURL string
	ExpiryMinutes   int
	SupportEmail    string
	CompanyAddress  string
	UnsubscribeURL  string
}

func (v VerifyEmailValues) pairs() []string {
	fields := [][2]string{
		{"app_name", v.AppName},
		{"username", v.Username},
		{"verification_url", v.VerificationURL},
		{"expiry_minutes", strconv.Itoa(v.ExpiryMinutes)},
		{"support_email", v.SupportEmail},
		{"company_address", v.CompanyAddress},
		{"unsubscribe_url", v.UnsubscribeURL},
	}

	out := make([]string, 0, len(fields)*4)
	for _, f := range fields {
		val := html.EscapeString(f[1])
		out = append(out, "{{"+f[0]+"}}", val, "{{ "+f[0]+" }}", val)
	}
	return out
}

// RenderVerifyEmail substitutes values into tpl. Values are HTML-escaped;
// unknown placeholders are left as they are.
func RenderVerifyEmail(tpl Template, v VerifyEmailValues) (string, error) {
	if !tpl.IsHTML() {
		return "", fmt.Errorf("%w: %s is not html", ErrTemplate, tpl.Key)
	}
	if len(tpl.Body) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrTemplate, tpl.Key)
	}

	return strings.NewReplacer(v.pairs()...).Replace(string(tpl.Body)), nil
}
