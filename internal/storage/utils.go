package storage

import (
	"errors"
	"strconv"

	"gorm.io/gorm"
)

// StrToUint 将字符串转换为 uint。
// 如果转换失败，它会返回 0 和错误。
func StrToUint(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// IsNotFound reports whether err is GORM's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// dbFrom 返回 tx（如果调用方处于事务中）或者仓库自己的连接。
func dbFrom(own *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return own
}
