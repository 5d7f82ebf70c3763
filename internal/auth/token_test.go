package auth

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("changeme123")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyToken("changeme123", hash) {
		t.Fatalf("expected token verification to succeed")
	}
	if VerifyToken("wrong-token", hash) {
		t.Fatalf("did not expect wrong token to verify")
	}
	if VerifyToken("changeme123", "") {
		t.Fatalf("did not expect an empty hash to verify")
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	first, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	second, _ := GenerateToken()
	if len(first) != 64 || first == second {
		t.Fatalf("unexpected tokens %q %q", first, second)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	if got, ok := BearerToken(" bearer abc "); !ok || got != "abc" {
		t.Fatalf("unexpected bearer token: %q %v", got, ok)
	}
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer  "} {
		if _, ok := BearerToken(header); ok {
			t.Fatalf("%q: expected no token", header)
		}
	}
}
