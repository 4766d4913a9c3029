package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHashPassword 测试密码哈希：同一明文两次哈希结果不同，但都能通过校验
func TestHashPassword(t *testing.T) {
	hash1, err := HashPassword("secret123")
	assert.NoError(t, err)
	hash2, err := HashPassword("secret123")
	assert.NoError(t, err)

	assert.NotEqual(t, "secret123", hash1)
	assert.NotEqual(t, hash1, hash2)

	assert.True(t, CheckPasswordHash("secret123", hash1))
	assert.True(t, CheckPasswordHash("secret123", hash2))
}

// TestCheckPasswordHash 测试密码校验的失败路径
func TestCheckPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	assert.NoError(t, err)

	assert.False(t, CheckPasswordHash("wrong-password", hash))
	assert.False(t, CheckPasswordHash("", hash))
	// 非法哈希不应 panic，直接返回 false
	assert.False(t, CheckPasswordHash("secret123", "not-a-bcrypt-hash"))
	assert.False(t, CheckPasswordHash("secret123", ""))
}

// TestTokenRoundTrip 测试 token 的生成与解析
func TestTokenRoundTrip(t *testing.T) {
	SetSecret("unit-test-secret")

	token, err := GenerateToken(42, "alice")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

// TestParseTokenInvalid 测试非法 token
func TestParseTokenInvalid(t *testing.T) {
	SetSecret("unit-test-secret")

	_, err := ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
