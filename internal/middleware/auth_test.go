package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/service"
)

// mockJWTService 是用于测试的JWT服务模拟实现
type mockJWTService struct {
	validTokens   map[string]*service.Claims
	expiredTokens map[string]bool
}

func newMockJWTService() *mockJWTService {
	return &mockJWTService{
		validTokens:   make(map[string]*service.Claims),
		expiredTokens: make(map[string]bool),
	}
}

func (m *mockJWTService) GenerateTokenPair(user *domain.User) (*service.TokenPair, error) {
	accessToken := "mock_access_token_" + user.Username
	refreshToken := "mock_refresh_token_" + user.Username

	m.validTokens[accessToken] = &service.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     "access",
	}
	m.validTokens[refreshToken] = &service.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     "refresh",
	}

	return &service.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (m *mockJWTService) ValidateAccessToken(tokenString string) (*service.Claims, error) {
	if m.expiredTokens[tokenString] {
		return nil, service.ErrTokenExpired
	}
	claims, exists := m.validTokens[tokenString]
	if !exists || claims.Type != "access" {
		return nil, service.ErrInvalidToken
	}
	return claims, nil
}

func (m *mockJWTService) ValidateRefreshToken(tokenString string) (*service.Claims, error) {
	if m.expiredTokens[tokenString] {
		return nil, service.ErrTokenExpired
	}
	claims, exists := m.validTokens[tokenString]
	if !exists || claims.Type != "refresh" {
		return nil, service.ErrInvalidToken
	}
	return claims, nil
}

func (m *mockJWTService) RefreshTokenPair(refreshToken string) (*service.TokenPair, error) {
	claims, err := m.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return m.GenerateTokenPair(&domain.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := newMockJWTService()
	staff := &domain.User{ID: 1, Username: "ops.lee", Role: domain.UserRoleStaff}
	tokenPair, _ := jwtService.GenerateTokenPair(staff)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"有效令牌", "Bearer " + tokenPair.AccessToken, http.StatusOK},
		{"缺少认证头", "", http.StatusUnauthorized},
		{"非Bearer格式", "Basic dXNlcg==", http.StatusUnauthorized},
		{"空令牌", "Bearer ", http.StatusUnauthorized},
		{"无效令牌", "Bearer bogus", http.StatusUnauthorized},
		{"刷新令牌不能当访问令牌", "Bearer " + tokenPair.RefreshToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(jwtService, zap.NewNop())(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := newMockJWTService()
	staff := &domain.User{ID: 1, Username: "ops.lee", Role: domain.UserRoleStaff}
	tokenPair, _ := jwtService.GenerateTokenPair(staff)
	jwtService.expiredTokens[tokenPair.AccessToken] = true

	handler := AuthMiddleware(jwtService, zap.NewNop())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+tokenPair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_InjectsUser(t *testing.T) {
	jwtService := newMockJWTService()
	admin := &domain.User{ID: 7, Username: "admin.wu", Role: domain.UserRoleAdmin}
	tokenPair, _ := jwtService.GenerateTokenPair(admin)

	var captured *domain.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := AuthMiddleware(jwtService, zap.NewNop())(inner)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokenPair.AccessToken)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured == nil {
		t.Fatal("user not injected into context")
	}
	if captured.ID != 7 || captured.Role != domain.UserRoleAdmin {
		t.Errorf("unexpected user in context: %+v", captured)
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtService := newMockJWTService()
	staffPair, _ := jwtService.GenerateTokenPair(&domain.User{ID: 1, Username: "ops.lee", Role: domain.UserRoleStaff})
	adminPair, _ := jwtService.GenerateTokenPair(&domain.User{ID: 2, Username: "admin.wu", Role: domain.UserRoleAdmin})

	chain := AuthMiddleware(jwtService, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"管理员放行", adminPair.AccessToken, http.StatusOK},
		{"运营账号被拒", staffPair.AccessToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAdmin_NoUserInContext(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
