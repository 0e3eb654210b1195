// Package auth provides provider API authentication using HMAC-SHA256 signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// SignatureHeader carries the request signature.
const SignatureHeader = "X-signature"

// Credentials holds the public/secret key pair issued by the provider.
type Credentials struct {
	PublicKey string
	SecretKey string

	now func() time.Time
}

// NewCredentials validates and returns a key pair.
func NewCredentials(publicKey, secretKey string) (*Credentials, error) {
	if publicKey == "" {
		return nil, errors.New("public key is required")
	}
	if secretKey == "" {
		return nil, errors.New("secret key is required")
	}
	return &Credentials{
		PublicKey: publicKey,
		SecretKey: secretKey,
		now:       time.Now,
	}, nil
}

// SignRequest generates authentication headers for a provider request.
func (c *Credentials) SignRequest() map[string]string {
	return map[string]string{
		SignatureHeader: c.Signature(),
	}
}

// Signature returns "<unix_ts>.<public_key>.<hex(hmac_sha256(secret, unix_ts.public_key))>".
func (c *Credentials) Signature() string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return c.generateSignature(now().Unix())
}

func (c *Credentials) generateSignature(timestamp int64) string {
	payload := fmt.Sprintf("%d.%s", timestamp, c.PublicKey)

	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(payload))

	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}
