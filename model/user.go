package model

// User represents a registered account.
// Password 保存的是 bcrypt 哈希，永远不会出现在 API 响应里。
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Gender   string `json:"gender,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
}
