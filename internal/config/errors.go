package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// cacheField 用于拼接 Cache 级字段路径，输出 Cache.Field 形式。
func cacheField(field string) string {
	return fmt.Sprintf("Cache.%s", field)
}

// assetField 输出 Cache.Assets[i] 形式的字段路径。
func assetField(index int) string {
	return fmt.Sprintf("Cache.Assets[%d]", index)
}
