package xtask

import (
	"fmt"
	"strings"
)

// Kind 任务类型，决定任务所在的命名空间。
type Kind string

const (
	// KindCron cron 表达式任务
	KindCron Kind = "cron"
	// KindInterval 固定周期任务
	KindInterval Kind = "interval"
	// KindTimeout 一次性延迟任务
	KindTimeout Kind = "timeout"
)

// Kinds 返回全部任务类型，顺序与启动时的物化顺序一致（timeout → interval → cron）。
func Kinds() []Kind {
	return []Kind{KindTimeout, KindInterval, KindCron}
}

// IsValid 判断是否为已知类型。
func (k Kind) IsValid() bool {
	switch k {
	case KindCron, KindInterval, KindTimeout:
		return true
	default:
		return false
	}
}

// DisplayName 返回用于错误消息的展示名。
func (k Kind) DisplayName() string {
	switch k {
	case KindCron:
		return "Cron Job"
	case KindInterval:
		return "Interval"
	case KindTimeout:
		return "Timeout"
	default:
		return string(k)
	}
}

// String 实现 fmt.Stringer。
func (k Kind) String() string {
	return string(k)
}

// ParseKind 从字符串解析任务类型，大小写不敏感。
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
