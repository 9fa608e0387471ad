package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// muse 账号密码的长度限制。上限是 bcrypt 能处理的最大字节数
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var ErrPasswordLength = errors.New("password must be 6 to 72 bytes")

// ValidatePassword 检查注册时提交的密码长度。
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// HashPassword 生成存入 users.password_hash 的 bcrypt 哈希。
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash 登录时比对明文密码与用户的 password_hash。
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
