package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 即 slog.Level，配置与命令行以名称给出。
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel 解析 --log-level 取值。
//
// 大小写不敏感，warning 视为 warn，也接受 slog 的偏移写法（如 info+2）。
func ParseLevel(s string) (Level, error) {
	name := strings.TrimSpace(s)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	return level, nil
}
