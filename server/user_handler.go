package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"CampusTrade/core/auth"
	"CampusTrade/logger"
	"CampusTrade/model"
	"CampusTrade/repository"
)

// UserHandler 用户相关接口的处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}

// LoginHandler 用户登录
func (h *UserHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	user, err := h.userRepo.FindByUsernameWithCredential(req.Username)
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "登录过程中发生错误: "+err.Error())
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.Password) {
		logger.Warn("[Login] 用户名或密码错误", logger.String("username", req.Username))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户名或密码错误",
		})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "登录过程中发生错误: "+err.Error())
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "登录成功",
		"token":   token,
		"userInfo": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// CheckUsernameHandler 用户名是否已被注册
func (h *UserHandler) CheckUsernameHandler(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeFail(w, http.StatusBadRequest, "用户名不能为空")
		return
	}

	user, err := h.userRepo.FindByUsername(username)
	if err != nil {
		logger.Error("[CheckUsername] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "查询成功",
		"data":    map[string]interface{}{"exists": user != nil},
	})
}

// RegisterHandler 用户注册
// 先查重再插入，两步之间没有事务保护（与单机部署的使用场景一致）。
func (h *UserHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	existing, err := h.userRepo.FindByUsername(req.Username)
	if err != nil {
		logger.Error("[Register] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "注册失败: "+err.Error())
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户名已存在",
		})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] 密码加密失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "注册失败: "+err.Error())
		return
	}

	user := &model.User{
		Username: req.Username,
		Password: hashed,
		Gender:   req.Gender,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
	}

	if _, err := h.userRepo.Create(user); err != nil {
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "注册失败: "+err.Error())
		return
	}

	logger.Info("[Register] 注册成功", logger.String("username", req.Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "注册成功",
	})
}

// GetUserInfoHandler 获取用户信息（不包含密码）
func (h *UserHandler) GetUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeFail(w, http.StatusBadRequest, "用户名不能为空")
		return
	}

	user, err := h.userRepo.FindByUsername(username)
	if err != nil {
		logger.Error("[UserInfo] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "获取用户信息失败: "+err.Error())
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户不存在",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"userInfo": userInfoPayload(user),
	})
}

// UpdateUserHandler 更新用户资料（不含密码）
// 四个资料字段整体覆盖，前端对未修改的字段回传原值。
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Gender   string `json:"gender"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Address  string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.Username == "" {
		writeFail(w, http.StatusBadRequest, "用户名不能为空")
		return
	}

	rows, err := h.userRepo.UpdateProfile(req.Username, req.Gender, req.Phone, req.Email, req.Address)
	if err != nil {
		logger.Error("[UpdateUser] 更新用户信息失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "更新用户信息失败: "+err.Error())
		return
	}

	if rows > 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "用户信息更新成功",
		})
	} else {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户不存在或更新失败",
		})
	}
}

// ChangePasswordHandler 修改密码（需验证原密码）
func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.Username == "" {
		writeFail(w, http.StatusBadRequest, "用户名不能为空")
		return
	}
	if req.OldPassword == "" {
		writeFail(w, http.StatusBadRequest, "原密码不能为空")
		return
	}
	if req.NewPassword == "" {
		writeFail(w, http.StatusBadRequest, "新密码不能为空")
		return
	}

	user, err := h.userRepo.FindByUsernameWithCredential(req.Username)
	if err != nil {
		logger.Error("[ChangePassword] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "修改密码失败: "+err.Error())
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户不存在",
		})
		return
	}

	if !auth.CheckPasswordHash(req.OldPassword, user.Password) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "原密码不正确",
		})
		return
	}

	newHashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("[ChangePassword] 密码加密失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "修改密码失败: "+err.Error())
		return
	}

	// 更新语句带上原哈希作为条件，0 行受影响说明并发下已被改掉
	rows, err := h.userRepo.ChangePassword(req.Username, user.Password, newHashed)
	if err != nil {
		logger.Error("[ChangePassword] 更新密码失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "修改密码失败: "+err.Error())
		return
	}

	if rows > 0 {
		logger.Info("[ChangePassword] 密码修改成功", logger.String("username", req.Username))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "密码修改成功",
		})
	} else {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "密码修改失败",
		})
	}
}

// CheckUsernameAndEmailHandler 检查用户名和邮箱是否匹配（找回密码前置校验）
func (h *UserHandler) CheckUsernameAndEmailHandler(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	email := r.URL.Query().Get("email")
	if username == "" || email == "" {
		writeFail(w, http.StatusBadRequest, "用户名和邮箱不能为空")
		return
	}

	user, err := h.userRepo.FindByUsername(username)
	if err != nil {
		logger.Error("[CheckUsernameAndEmail] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "检查过程中发生错误: "+err.Error())
		return
	}

	if user != nil && user.Email == email {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "用户名和邮箱匹配",
		})
	} else {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "用户名和邮箱不匹配",
		})
	}
}

// ResetPasswordHandler 重置密码（找回密码流程，不校验原密码）
func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.Username == "" {
		writeFail(w, http.StatusBadRequest, "用户名不能为空")
		return
	}
	if req.NewPassword == "" {
		writeFail(w, http.StatusBadRequest, "新密码不能为空")
		return
	}

	newHashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("[ResetPassword] 密码加密失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "重置密码失败: "+err.Error())
		return
	}

	rows, err := h.userRepo.ResetPassword(req.Username, newHashed)
	if err != nil {
		logger.Error("[ResetPassword] 更新密码失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "重置密码失败: "+err.Error())
		return
	}

	if rows > 0 {
		logger.Info("[ResetPassword] 密码重置成功", logger.String("username", req.Username))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "密码重置成功",
		})
	} else {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "密码重置失败",
		})
	}
}

// ProfileHandler 返回当前登录用户的资料，需要 Bearer token
func (h *UserHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value("username").(string)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "未登录")
		return
	}

	user, err := h.userRepo.FindByUsername(username)
	if err != nil {
		logger.Error("[Profile] 查询用户失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "获取用户信息失败: "+err.Error())
		return
	}
	if user == nil {
		writeFail(w, http.StatusNotFound, "用户不存在")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"userInfo": userInfoPayload(user),
	})
}

// AuthMiddleware 校验 Authorization 头中的 Bearer token，
// 并把用户信息写入请求上下文。
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeFail(w, http.StatusUnauthorized, "缺少Authorization头")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeFail(w, http.StatusUnauthorized, "Authorization头格式错误")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			writeFail(w, http.StatusUnauthorized, "无效的token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// userInfoPayload 构建不含密码的用户信息
func userInfoPayload(user *model.User) map[string]interface{} {
	return map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"gender":   user.Gender,
		"phone":    user.Phone,
		"email":    user.Email,
		"address":  user.Address,
	}
}
