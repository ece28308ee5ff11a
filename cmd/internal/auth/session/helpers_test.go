package session

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

// testKeyPEM returns a fresh Ed25519 keypair as PKCS#8 / PKIX PEM.
func testKeyPEM(t *testing.T) (priv, pub []byte) {
	t.Helper()

	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	skDER, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	pkDER, err := x509.MarshalPKIXPublicKey(pk)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}

	priv = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: skDER})
	pub = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkDER})
	return priv, pub
}

func testConfig(t *testing.T) Config {
	t.Helper()

	priv, pub := testKeyPEM(t)
	cfg := DefaultConfig()
	cfg.Issuer = "bff-test"
	cfg.Audience = "bff-test-clients"
	cfg.PrivateKeyPEM = priv
	cfg.PublicKeyPEM = pub
	return cfg
}

func testIssuer(t *testing.T, cfg Config) *Issuer {
	t.Helper()

	iss, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}
