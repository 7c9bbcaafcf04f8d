package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestProofObjectKey(t *testing.T) {
	tests := []struct {
		contentType string
		wantExt     string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"image/webp", ".webp"},
		{"application/pdf", ".pdf"},
	}
	for _, tt := range tests {
		key, err := proofObjectKey(tt.contentType)
		if err != nil {
			t.Errorf("%s: %v", tt.contentType, err)
			continue
		}
		if !strings.HasPrefix(key, "proofs/") || !strings.HasSuffix(key, tt.wantExt) {
			t.Errorf("%s: key = %q, want proofs/ prefix and %s suffix", tt.contentType, key, tt.wantExt)
		}
	}

	for _, bad := range []string{"", "text/html", "application/zip", "image/svg+xml"} {
		if _, err := proofObjectKey(bad); !errors.Is(err, ErrUnsupportedProofType) {
			t.Errorf("%q: got %v, want ErrUnsupportedProofType", bad, err)
		}
	}
}
