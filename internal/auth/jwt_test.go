package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", 123456789, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 123456789 {
		t.Errorf("user id = %d", claims.UserID)
	}
	if claims.Issuer != issuer {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestJWT_Rejects(t *testing.T) {
	valid, _ := GenerateJWT("secret", 1, time.Hour)

	past := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    issuer,
		},
	}
	stale, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, past).SignedString([]byte("secret"))

	foreign := Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}
	foreignTok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, foreign).SignedString([]byte("secret"))

	noUser := Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	noUserTok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noUser).SignedString([]byte("secret"))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, past).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"expired", "secret", stale},
		{"foreign issuer", "secret", foreignTok},
		{"missing user", "secret", noUserTok},
		{"alg none", "secret", none},
		{"garbage", "secret", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.secret, tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJWT_DefaultExpiration(t *testing.T) {
	token, err := GenerateJWT("secret", 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Errorf("ttl = %v, want about 24h", ttl)
	}
}
