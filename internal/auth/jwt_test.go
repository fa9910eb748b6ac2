package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/erazemk/popis/internal/model"
)

func TestIssueAndValidatePair(t *testing.T) {
	issuer := NewIssuer("test-secret-key", 0, 0)

	pair, err := issuer.IssuePair(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("expected non-empty tokens")
	}

	claims, err := issuer.Validate(pair.Access, KindAccess)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("expected user_id 1, got %d", claims.UserID)
	}
	if claims.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}

	refresh, err := issuer.Validate(pair.Refresh, KindRefresh)
	if err != nil {
		t.Fatalf("Validate refresh: %v", err)
	}
	if refresh.ID == claims.ID {
		t.Error("expected access and refresh tokens to have distinct JTIs")
	}
}

func TestValidateWrongKind(t *testing.T) {
	issuer := NewIssuer("secret", 0, 0)
	pair, _ := issuer.IssuePair(1, "staff", model.RoleStaff)

	if _, err := issuer.Validate(pair.Refresh, KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind using refresh as access, got %v", err)
	}
	if _, err := issuer.Validate(pair.Access, KindRefresh); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind using access as refresh, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	pair, _ := NewIssuer("secret1", 0, 0).IssuePair(1, "admin", model.RoleAdmin)

	_, err := NewIssuer("secret2", 0, 0).Validate(pair.Access, KindAccess)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := NewIssuer("secret", 0, 0).Validate("not-a-token", KindAccess)
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Nanosecond, time.Nanosecond)
	pair, _ := issuer.IssuePair(1, "staff", model.RoleStaff)

	time.Sleep(1100 * time.Millisecond)
	if _, err := issuer.Validate(pair.Access, KindAccess); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewIssuer("test", 0, 0)
	pair, _ := issuer.IssuePair(1, "test", model.RoleStaff)

	access, _ := issuer.Validate(pair.Access, KindAccess)
	refresh, _ := issuer.Validate(pair.Refresh, KindRefresh)

	checks := []struct {
		name string
		got  time.Time
		ttl  time.Duration
	}{
		{"access", access.ExpiresAt.Time, DefaultAccessTTL},
		{"refresh", refresh.ExpiresAt.Time, DefaultRefreshTTL},
	}
	for _, c := range checks {
		// Should be within a few seconds.
		diff := time.Now().Add(c.ttl).Sub(c.got)
		if diff < -5*time.Second || diff > 5*time.Second {
			t.Errorf("%s token expiry too far from expected: diff=%v", c.name, diff)
		}
	}
}
