package security

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Error("hash equals plaintext")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("CheckPassword() rejected correct password")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("CheckPassword() accepted wrong password")
	}
}

func TestHashAndCheckPIN(t *testing.T) {
	hash, err := HashPIN("4321")
	if err != nil {
		t.Fatalf("HashPIN() error: %v", err)
	}
	if !CheckPIN("4321", hash) {
		t.Error("CheckPIN() rejected correct PIN")
	}
	if CheckPIN("1234", hash) {
		t.Error("CheckPIN() accepted wrong PIN")
	}
}

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator("test-secret")

	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		if !g.ValidateToken("session-1", token) {
			t.Error("valid token rejected")
		}
	})

	t.Run("wrong session", func(t *testing.T) {
		if g.ValidateToken("session-2", token) {
			t.Error("token accepted for different session")
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if g.ValidateToken("", token) || g.ValidateToken("session-1", "") {
			t.Error("empty input accepted")
		}
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewCSRFGenerator("other-secret")
		if other.ValidateToken("session-1", token) {
			t.Error("token accepted under different secret")
		}
	})
}

func TestChildTokenIssuer(t *testing.T) {
	issuer := NewChildTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(42, 7)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.ChildID != 42 || claims.FamilyID != 7 {
		t.Errorf("claims = (%d, %d), want (42, 7)", claims.ChildID, claims.FamilyID)
	}

	t.Run("tampered token", func(t *testing.T) {
		if _, err := issuer.Verify(token + "x"); err == nil {
			t.Error("tampered token verified")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewChildTokenIssuer("another-secret", time.Hour)
		if _, err := other.Verify(token); err == nil {
			t.Error("token verified with wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewChildTokenIssuer("test-secret", -time.Minute)
		expired, err := shortLived.Issue(1, 1)
		if err != nil {
			t.Fatalf("Issue() error: %v", err)
		}
		if _, err := issuer.Verify(expired); err == nil {
			t.Error("expired token verified")
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request over the limit was allowed")
	}

	// A different client has its own bucket
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh client was denied")
	}
}
