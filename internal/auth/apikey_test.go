// ABOUTME: Tests for api key token generation
// ABOUTME: Checks prefix, length and uniqueness

package auth

import (
	"strings"
	"testing"
)

func TestNewAPIKeyToken(t *testing.T) {
	a, err := NewAPIKeyToken()
	if err != nil {
		t.Fatalf("NewAPIKeyToken() error = %v", err)
	}
	b, err := NewAPIKeyToken()
	if err != nil {
		t.Fatalf("NewAPIKeyToken() error = %v", err)
	}

	if !strings.HasPrefix(a, APIKeyPrefix) {
		t.Errorf("token %q missing prefix %q", a, APIKeyPrefix)
	}
	if len(a) != len(APIKeyPrefix)+32 {
		t.Errorf("token length = %d, want %d", len(a), len(APIKeyPrefix)+32)
	}
	if a == b {
		t.Error("two generated tokens should differ")
	}
}
