package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func TestNewCredentials(t *testing.T) {
	tests := []struct {
		name    string
		public  string
		secret  string
		wantErr string
	}{
		{"valid", "pub", "sec", ""},
		{"missing public", "", "sec", "public key is required"},
		{"missing secret", "pub", "", "secret key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := NewCredentials(tt.public, tt.secret)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if creds.PublicKey != tt.public {
				t.Errorf("PublicKey = %q, want %q", creds.PublicKey, tt.public)
			}
		})
	}
}

func TestCredentials_Signature(t *testing.T) {
	creds, err := NewCredentials("test-public", "test-secret")
	if err != nil {
		t.Fatalf("NewCredentials failed: %v", err)
	}
	creds.now = func() time.Time { return time.Unix(1700000000, 0) }

	sig := creds.Signature()

	parts := strings.Split(sig, ".")
	if len(parts) != 3 {
		t.Fatalf("signature has %d parts, want 3: %q", len(parts), sig)
	}
	if parts[0] != "1700000000" {
		t.Errorf("timestamp = %q, want %q", parts[0], "1700000000")
	}
	if parts[1] != "test-public" {
		t.Errorf("public key = %q, want %q", parts[1], "test-public")
	}

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("1700000000.test-public"))
	want := hex.EncodeToString(mac.Sum(nil))
	if parts[2] != want {
		t.Errorf("digest = %q, want %q", parts[2], want)
	}
}

func TestCredentials_SignRequest(t *testing.T) {
	creds, _ := NewCredentials("pub", "sec")

	headers := creds.SignRequest()

	if headers[SignatureHeader] == "" {
		t.Errorf("%s header is empty", SignatureHeader)
	}
	if !strings.Contains(headers[SignatureHeader], ".pub.") {
		t.Errorf("signature %q does not embed the public key", headers[SignatureHeader])
	}
}
