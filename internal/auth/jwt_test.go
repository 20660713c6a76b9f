package auth

import (
	"testing"
	"time"

	"hive/config"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "hive"}
	tok, err := GenerateAccessToken(cfg, 42, "a@example.com", "ADMIN")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := ParseAccessToken(cfg, tok)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@example.com" || claims.Role != "ADMIN" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "hive"}
	tok, _ := GenerateAccessToken(cfg, 1, "a@example.com", "USER")

	tests := []struct {
		name  string
		cfg   *config.JWTConfig
		token string
	}{
		{"wrong secret", &config.JWTConfig{AccessSecret: "other", Issuer: "hive"}, tok},
		{"wrong issuer", &config.JWTConfig{AccessSecret: "secret", Issuer: "someone-else"}, tok},
		{"garbage", cfg, "not-a-token"},
		{"expired", cfg, mustToken(t, &config.JWTConfig{AccessSecret: "secret", AccessExpiry: -time.Minute, Issuer: "hive"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.cfg, tt.token); err != ErrInvalidToken {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustToken(t *testing.T, cfg *config.JWTConfig) string {
	t.Helper()
	tok, err := GenerateAccessToken(cfg, 1, "a@example.com", "USER")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}
