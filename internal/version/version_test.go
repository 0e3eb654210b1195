package version

import "testing"

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "altrates/dev" {
		t.Errorf("UserAgent() = %q, want %q", got, "altrates/dev")
	}
}

func TestString(t *testing.T) {
	if got := String(); got != "dev (unknown) built unknown" {
		t.Errorf("String() = %q", got)
	}
}
