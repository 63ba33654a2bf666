package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumistore/backoffice/internal/domain"
)

func newTestUserService() (UserService, *mockUserRepository) {
	users := newMockUserRepository()
	svc := NewUserService(users, zap.NewNop())
	return svc, users
}

func seedUser(users *mockUserRepository, username, password string, active bool) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         domain.UserRoleStaff,
		IsActive:     active,
	}
	_ = users.Create(user)
	return user
}

func TestUserService_Login(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		active   bool
		reqUser  string
		reqPass  string
		wantErr  error
	}{
		{
			name:     "登录成功",
			username: "ops.lee", password: "correct-horse", active: true,
			reqUser: "ops.lee", reqPass: "correct-horse",
		},
		{
			name:     "密码错误",
			username: "ops.lee", password: "correct-horse", active: true,
			reqUser: "ops.lee", reqPass: "wrong-password",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "用户不存在时返回同一错误",
			username: "ops.lee", password: "correct-horse", active: true,
			reqUser: "ghost", reqPass: "whatever",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "账号已禁用",
			username: "ops.lee", password: "correct-horse", active: false,
			reqUser: "ops.lee", reqPass: "correct-horse",
			wantErr: ErrUserInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users := newTestUserService()
			seedUser(users, tt.username, tt.password, tt.active)

			user, err := svc.Login(&domain.LoginRequest{Username: tt.reqUser, Password: tt.reqPass})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() unexpected error: %v", err)
			}
			if user.Username != tt.username {
				t.Errorf("username = %s, want %s", user.Username, tt.username)
			}
		})
	}
}

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name    string
		req     *CreateUserRequest
		wantErr error
	}{
		{
			name: "创建运营账号",
			req:  &CreateUserRequest{Username: "ops.chen", Email: "Ops.Chen@Example.com", Password: "long-enough-pw"},
		},
		{
			name: "创建管理员账号",
			req:  &CreateUserRequest{Username: "admin.wu", Email: "admin@example.com", Password: "long-enough-pw", Role: "admin"},
		},
		{
			name:    "密码过短",
			req:     &CreateUserRequest{Username: "ops.chen", Email: "a@b.c", Password: "short"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "用户名为空",
			req:     &CreateUserRequest{Username: "  ", Email: "a@b.c", Password: "long-enough-pw"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "未知角色",
			req:     &CreateUserRequest{Username: "ops.chen", Email: "a@b.c", Password: "long-enough-pw", Role: "superuser"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestUserService()

			user, err := svc.CreateUser(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateUser() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() unexpected error: %v", err)
			}
			if !user.IsActive {
				t.Error("new user should be active")
			}
			if user.PasswordHash == tt.req.Password {
				t.Error("password stored in plain text")
			}
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.req.Password)) != nil {
				t.Error("password hash does not verify")
			}
			wantRole := domain.UserRoleStaff
			if tt.req.Role == "admin" {
				wantRole = domain.UserRoleAdmin
			}
			if user.Role != wantRole {
				t.Errorf("role = %s, want %s", user.Role, wantRole)
			}
			if user.Email != "ops.chen@example.com" && user.Email != "admin@example.com" {
				t.Errorf("email not normalized: %s", user.Email)
			}
		})
	}
}

func TestUserService_CreateUser_DuplicateUsername(t *testing.T) {
	svc, users := newTestUserService()
	seedUser(users, "ops.lee", "whatever-pw", true)

	_, err := svc.CreateUser(&CreateUserRequest{Username: "ops.lee", Email: "x@y.z", Password: "long-enough-pw"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserService_GetUserByID(t *testing.T) {
	svc, users := newTestUserService()
	user := seedUser(users, "ops.lee", "whatever-pw", true)

	found, err := svc.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() unexpected error: %v", err)
	}
	if found.Username != "ops.lee" {
		t.Errorf("username = %s, want ops.lee", found.Username)
	}

	if _, err := svc.GetUserByID(999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetUserByID(0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("GetUserByID(0) error = %v, want ErrValidation", err)
	}
}
