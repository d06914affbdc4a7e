package kalshi

// auth.go: firma de requests con API keys de Kalshi.
//
// Cada request autenticado lleva la firma RSA-PSS (SHA-256) de
// timestamp_ms + METHOD + path, sin query string, en base64.

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Signer firma requests con la clave privada asociada a un API key.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewSigner crea un Signer a partir de un key ID y su clave privada.
func NewSigner(keyID string, key *rsa.PrivateKey) (*Signer, error) {
	if keyID == "" {
		return nil, errors.New("kalshi.NewSigner: empty key id")
	}
	if key == nil {
		return nil, errors.New("kalshi.NewSigner: nil private key")
	}
	return &Signer{keyID: keyID, key: key}, nil
}

// LoadSigner lee la clave privada PEM de path y construye el Signer.
func LoadSigner(keyID, path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kalshi.LoadSigner: read key file: %w", err)
	}
	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("kalshi.LoadSigner: %w", err)
	}
	return NewSigner(keyID, key)
}

// ParsePrivateKey acepta claves RSA en PEM PKCS#1 o PKCS#8.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

// KeyID devuelve el API key ID que acompaña a la firma.
func (s *Signer) KeyID() string { return s.keyID }

// Sign devuelve la firma base64 de timestamp+method+path.
func (s *Signer) Sign(timestamp, method, path string) (string, error) {
	digest := sha256.Sum256([]byte(timestamp + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify comprueba una firma producida por Sign. Se usa en tests y para
// validar la clave al arrancar.
func (s *Signer) Verify(timestamp, method, path, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	digest := sha256.Sum256([]byte(timestamp + method + path))
	return rsa.VerifyPSS(&s.key.PublicKey, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
}
