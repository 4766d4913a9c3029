package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"CampusTrade/core/auth"
	"CampusTrade/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository 是 UserRepository 接口的模拟实现
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUsername(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameWithCredential(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Create(user *model.User) (int64, error) {
	args := m.Called(user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(username, gender, phone, email, address string) (int64, error) {
	args := m.Called(username, gender, phone, email, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ChangePassword(username, oldHashed, newHashed string) (int64, error) {
	args := m.Called(username, oldHashed, newHashed)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ResetPassword(username, newHashed string) (int64, error) {
	args := m.Called(username, newHashed)
	return args.Get(0).(int64), args.Error(1)
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(rec, req)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

// TestRegister 测试用户注册
func TestRegister(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "newuser").Return(nil, nil)
	mockRepo.On("Create", mock.MatchedBy(func(u *model.User) bool {
		// 入库的必须是可被校验的哈希，绝不能是明文
		return u.Username == "newuser" &&
			u.Password != "password123" &&
			auth.CheckPasswordHash("password123", u.Password)
	})).Return(int64(1), nil)

	_, resp := postJSON(t, handler.RegisterHandler, "/api/register", map[string]string{
		"username": "newuser",
		"password": "password123",
		"email":    "new@example.com",
	})

	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "注册成功", resp["message"])
	mockRepo.AssertExpectations(t)
}

// TestRegisterDuplicateUsername 重复注册：第二次返回失败且不再插入
func TestRegisterDuplicateUsername(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "existinguser").Return(&model.User{ID: 1, Username: "existinguser"}, nil)

	_, resp := postJSON(t, handler.RegisterHandler, "/api/register", map[string]string{
		"username": "existinguser",
		"password": "password123",
	})

	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "用户名已存在", resp["message"])
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// TestLogin 测试登录：正确密码返回 userInfo（不含密码）和 token
func TestLogin(t *testing.T) {
	auth.SetSecret("unit-test-secret")

	hashed, err := auth.HashPassword("secret123")
	assert.NoError(t, err)

	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsernameWithCredential", "alice").Return(&model.User{
		ID:       7,
		Username: "alice",
		Password: hashed,
		Email:    "alice@example.com",
	}, nil)

	rec, resp := postJSON(t, handler.LoginHandler, "/api/login", map[string]string{
		"username": "alice",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "登录成功", resp["message"])
	assert.NotEmpty(t, resp["token"])

	userInfo, ok := resp["userInfo"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "alice", userInfo["username"])
	assert.Equal(t, "alice@example.com", userInfo["email"])
	assert.NotContains(t, userInfo, "password")
}

// TestLoginWrongPassword 密码错误返回失败
func TestLoginWrongPassword(t *testing.T) {
	hashed, err := auth.HashPassword("secret123")
	assert.NoError(t, err)

	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsernameWithCredential", "alice").Return(&model.User{
		ID:       7,
		Username: "alice",
		Password: hashed,
	}, nil)

	_, resp := postJSON(t, handler.LoginHandler, "/api/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})

	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "用户名或密码错误", resp["message"])
}

// TestLoginUnknownUser 用户不存在返回失败
func TestLoginUnknownUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsernameWithCredential", "nobody").Return(nil, nil)

	_, resp := postJSON(t, handler.LoginHandler, "/api/login", map[string]string{
		"username": "nobody",
		"password": "whatever",
	})

	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "用户名或密码错误", resp["message"])
}

// TestCheckUsername 用户名存在性检查
func TestCheckUsername(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "alice").Return(&model.User{ID: 1, Username: "alice"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/username?username=alice", nil)
	rec := httptest.NewRecorder()
	handler.CheckUsernameHandler(rec, req)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	data, ok := resp["data"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, true, data["exists"])
}

// TestGetUserInfo 获取用户资料不返回密码字段
func TestGetUserInfo(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "alice").Return(&model.User{
		ID:       1,
		Username: "alice",
		Gender:   "female",
		Phone:    "13800000000",
		Email:    "alice@example.com",
		Address:  "6号宿舍楼",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user/info?username=alice", nil)
	rec := httptest.NewRecorder()
	handler.GetUserInfoHandler(rec, req)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	userInfo, ok := resp["userInfo"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "alice", userInfo["username"])
	assert.Equal(t, "6号宿舍楼", userInfo["address"])
	assert.NotContains(t, userInfo, "password")
}

// TestChangePasswordWrongOldPassword 原密码错误时不更新存储的哈希
func TestChangePasswordWrongOldPassword(t *testing.T) {
	hashed, err := auth.HashPassword("right-password")
	assert.NoError(t, err)

	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsernameWithCredential", "alice").Return(&model.User{
		ID:       1,
		Username: "alice",
		Password: hashed,
	}, nil)

	_, resp := postJSON(t, handler.ChangePasswordHandler, "/api/user/changePassword", map[string]string{
		"username":    "alice",
		"oldPassword": "wrong-password",
		"newPassword": "new-password",
	})

	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "原密码不正确", resp["message"])
	mockRepo.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything)
}

// TestChangePassword 原密码正确时以旧哈希为条件更新
func TestChangePassword(t *testing.T) {
	hashed, err := auth.HashPassword("old-password")
	assert.NoError(t, err)

	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsernameWithCredential", "alice").Return(&model.User{
		ID:       1,
		Username: "alice",
		Password: hashed,
	}, nil)
	mockRepo.On("ChangePassword", "alice", hashed, mock.MatchedBy(func(newHashed string) bool {
		return auth.CheckPasswordHash("new-password", newHashed)
	})).Return(int64(1), nil)

	_, resp := postJSON(t, handler.ChangePasswordHandler, "/api/user/changePassword", map[string]string{
		"username":    "alice",
		"oldPassword": "old-password",
		"newPassword": "new-password",
	})

	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "密码修改成功", resp["message"])
	mockRepo.AssertExpectations(t)
}

// TestResetPassword 重置密码不校验原密码
func TestResetPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("ResetPassword", "alice", mock.MatchedBy(func(newHashed string) bool {
		return auth.CheckPasswordHash("brand-new", newHashed)
	})).Return(int64(1), nil)

	_, resp := postJSON(t, handler.ResetPasswordHandler, "/api/user/resetPassword", map[string]string{
		"username":    "alice",
		"newPassword": "brand-new",
	})

	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "密码重置成功", resp["message"])
	mockRepo.AssertExpectations(t)
}

// TestResetPasswordMissingNewPassword 缺少新密码直接返回 400
func TestResetPasswordMissingNewPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	rec, resp := postJSON(t, handler.ResetPasswordHandler, "/api/user/resetPassword", map[string]string{
		"username": "alice",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, resp["success"])
	mockRepo.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything)
}

// TestUpdateUserProfile 资料更新整体覆盖五个字段
func TestUpdateUserProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("UpdateProfile", "alice", "female", "13800000000", "alice@example.com", "6号宿舍楼").
		Return(int64(1), nil)

	_, resp := postJSON(t, handler.UpdateUserHandler, "/api/user/update", map[string]string{
		"username": "alice",
		"gender":   "female",
		"phone":    "13800000000",
		"email":    "alice@example.com",
		"address":  "6号宿舍楼",
	})

	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "用户信息更新成功", resp["message"])
	mockRepo.AssertExpectations(t)
}

// TestCheckUsernameAndEmail 找回密码前置校验
func TestCheckUsernameAndEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "alice").Return(&model.User{
		ID:       1,
		Username: "alice",
		Email:    "alice@example.com",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user/checkUsernameAndEmail?username=alice&email=alice@example.com", nil)
	rec := httptest.NewRecorder()
	handler.CheckUsernameAndEmailHandler(rec, req)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	// 邮箱不匹配
	req = httptest.NewRequest(http.MethodGet, "/api/user/checkUsernameAndEmail?username=alice&email=other@example.com", nil)
	rec = httptest.NewRecorder()
	handler.CheckUsernameAndEmailHandler(rec, req)

	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

// TestProfileWithToken 带合法 token 访问 /api/auth/profile
func TestProfileWithToken(t *testing.T) {
	auth.SetSecret("unit-test-secret")

	token, err := auth.GenerateToken(7, "alice")
	assert.NoError(t, err)

	mockRepo := new(MockUserRepository)
	handler := NewUserHandler(mockRepo)

	mockRepo.On("FindByUsername", "alice").Return(&model.User{ID: 7, Username: "alice"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthMiddleware(handler.ProfileHandler)(rec, req)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	// 无 token 时应被拦截
	req = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec = httptest.NewRecorder()
	AuthMiddleware(handler.ProfileHandler)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
