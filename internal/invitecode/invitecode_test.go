package invitecode

import (
	"strings"
	"testing"
)

func TestNewFamilyCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewFamilyCode()
		if err != nil {
			t.Fatalf("NewFamilyCode() error: %v", err)
		}
		if len(code) != FamilyCodeLength {
			t.Errorf("code %q has length %d, want %d", code, len(code), FamilyCodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Errorf("code %q contains %q outside the allowed alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 200 draws from a 31^6 space should essentially never collide down to
	// a handful of distinct values.
	if len(seen) < 190 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestCodeAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	for _, c := range "0O1IL" {
		if strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("alphabet contains ambiguous character %q", c)
		}
	}
}

func TestNormalizeFamilyCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc234", "ABC234"},
		{"  XyZ789 ", "XYZ789"},
		{"ABCDEF", "ABCDEF"},
	}
	for _, tt := range tests {
		if got := NormalizeFamilyCode(tt.in); got != tt.want {
			t.Errorf("NormalizeFamilyCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken() error: %v", err)
		}
		if len(token) != 32 {
			t.Errorf("token length = %d, want 32", len(token))
		}
		if seen[token] {
			t.Errorf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}
