package cache

import (
	"testing"
	"time"
)

func TestRevokedKey(t *testing.T) {
	t.Parallel()

	if got := revokedKey("01HX"); got != "revoked:jti:01HX" {
		t.Errorf("revokedKey = %q, want %q", got, "revoked:jti:01HX")
	}
}

func TestRevocationTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      time.Duration
	}{
		{"remaining lifetime", now.Add(8 * time.Hour), 8 * time.Hour},
		{"almost expired", now.Add(10 * time.Millisecond), time.Second},
		{"already expired", now.Add(-time.Minute), time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := revocationTTL(now, tt.expiresAt); got != tt.want {
				t.Errorf("revocationTTL = %v, want %v", got, tt.want)
			}
		})
	}
}
