package util

import (
	"strconv"
)

// ParseIntDefault 解析失败或为空时返回默认值
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func Float64Ptr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
