package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	svc, err := NewAuthService(privatePEM, publicPEM, accessTTL, refreshTTL)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := newTestService(t, 15*time.Minute, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(42)
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	access, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if access.UserID != 42 || access.TokenType != "access" {
		t.Errorf("unexpected access claims: %+v", access)
	}

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if refresh.UserID != 42 || refresh.ID == "" {
		t.Errorf("refresh token must carry user id and jti: %+v", refresh)
	}
}

func TestValidateRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := newTestService(t, 15*time.Minute, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(7)
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}
	if _, err := svc.ValidateRefreshToken(pair.AccessToken); err == nil {
		t.Fatal("access token must not pass refresh validation")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, -time.Minute, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(7)
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	issuerSvc := newTestService(t, 15*time.Minute, 24*time.Hour)
	verifierSvc := newTestService(t, 15*time.Minute, 24*time.Hour)

	pair, err := issuerSvc.GenerateTokenPair(7)
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}
	if _, err := verifierSvc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("token signed with a different key must not validate")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := newTestService(t, 15*time.Minute, 24*time.Hour)

	hash, err := svc.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !svc.CheckPasswordHash("correct horse battery staple", hash) {
		t.Error("matching password rejected")
	}
	if svc.CheckPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}
