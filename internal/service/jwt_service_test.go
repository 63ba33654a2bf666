package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/config"
	"github.com/lumistore/backoffice/internal/domain"
)

func createTestJWTService() JWTService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	cfg.App.Name = "backoffice-test"

	return NewJWTService(cfg, zap.NewNop())
}

func createTestUser() *domain.User {
	return &domain.User{
		ID:       123,
		Username: "ops.lee",
		Role:     domain.UserRoleStaff,
		IsActive: true,
	}
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	jwtService := createTestJWTService()
	user := createTestUser()

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if tokenPair.AccessToken == "" || tokenPair.RefreshToken == "" {
		t.Fatal("token pair must not contain empty tokens")
	}

	claims, err := jwtService.ValidateAccessToken(tokenPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %s, want %s", claims.Username, user.Username)
	}
	if claims.Role != user.Role {
		t.Errorf("Role = %s, want %s", claims.Role, user.Role)
	}
	if claims.Type != "access" {
		t.Errorf("Type = %s, want access", claims.Type)
	}

	refreshClaims, err := jwtService.ValidateRefreshToken(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken failed: %v", err)
	}
	if refreshClaims.Type != "refresh" {
		t.Errorf("Type = %s, want refresh", refreshClaims.Type)
	}
}

func TestJWTService_ValidateAccessToken_InvalidToken(t *testing.T) {
	jwtService := createTestJWTService()

	testCases := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"invalid format", "invalid.token.format"},
		{"wrong signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ.invalid"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := jwtService.ValidateAccessToken(tc.token); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestJWTService_TokenTypeMismatch(t *testing.T) {
	jwtService := createTestJWTService()
	user := createTestUser()

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	// 访问令牌不能当刷新令牌用，反之亦然
	if _, err := jwtService.ValidateRefreshToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := jwtService.ValidateAccessToken(tokenPair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.AccessTokenTTL = -time.Minute // 签发即过期
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	cfg.App.Name = "backoffice-test"
	jwtService := NewJWTService(cfg, zap.NewNop())

	tokenPair, err := jwtService.GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateAccessToken error = %v, want ErrTokenExpired", err)
	}
}

func TestJWTService_IssuerMismatch(t *testing.T) {
	issuerA := &config.Config{}
	issuerA.JWT.Secret = "shared-secret"
	issuerA.JWT.AccessTokenTTL = 15 * time.Minute
	issuerA.JWT.RefreshTokenTTL = 24 * time.Hour
	issuerA.App.Name = "service-a"

	issuerB := &config.Config{}
	issuerB.JWT.Secret = "shared-secret"
	issuerB.JWT.AccessTokenTTL = 15 * time.Minute
	issuerB.JWT.RefreshTokenTTL = 24 * time.Hour
	issuerB.App.Name = "service-b"

	tokenPair, err := NewJWTService(issuerA, zap.NewNop()).GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := NewJWTService(issuerB, zap.NewNop()).ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("cross-issuer validation error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	jwtService := createTestJWTService()
	user := createTestUser()

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	newPair, err := jwtService.RefreshTokenPair(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokenPair failed: %v", err)
	}

	claims, err := jwtService.ValidateAccessToken(newPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken on refreshed token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != user.Role {
		t.Errorf("refreshed claims = %+v, want original identity", claims)
	}

	// 访问令牌不能用于刷新
	if _, err := jwtService.RefreshTokenPair(tokenPair.AccessToken); err == nil {
		t.Error("RefreshTokenPair with access token should fail")
	}
}
