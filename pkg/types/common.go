package types

import "time"

const (
	NO_PAGINATION = 0
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)

// GetCurrentTimestamp 获取当前时间戳（便于测试时mock）
var GetCurrentTimestamp = func() int64 {
	return time.Now().Unix()
}
