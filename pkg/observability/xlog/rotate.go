package xlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认配置
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 30
)

// ErrEmptyFilename 轮转文件路径为空
var ErrEmptyFilename = errors.New("xlog: empty rotation filename")

type rotationConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// RotationOption 文件轮转选项
type RotationOption func(*rotationConfig)

// WithMaxSize 单个日志文件最大大小（MB）
func WithMaxSize(mb int) RotationOption {
	return func(c *rotationConfig) { c.maxSizeMB = mb }
}

// WithMaxBackups 保留的备份文件数量，0 表示不限制
func WithMaxBackups(n int) RotationOption {
	return func(c *rotationConfig) { c.maxBackups = n }
}

// WithMaxAge 备份保留天数，0 表示不按天数清理
func WithMaxAge(days int) RotationOption {
	return func(c *rotationConfig) { c.maxAgeDays = days }
}

// WithCompress 是否 gzip 压缩备份
func WithCompress(compress bool) RotationOption {
	return func(c *rotationConfig) { c.compress = compress }
}

// WithLocalTime 备份文件名是否使用本地时间
func WithLocalTime(local bool) RotationOption {
	return func(c *rotationConfig) { c.localTime = local }
}

// newRotator 创建 lumberjack 轮转器，自动创建父目录。
func newRotator(filename string, opts ...RotationOption) (*lumberjack.Logger, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	cfg := rotationConfig{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxSizeMB <= 0 {
		return nil, fmt.Errorf("xlog: rotation max size must be positive, got %d", cfg.maxSizeMB)
	}
	if cfg.maxBackups < 0 || cfg.maxAgeDays < 0 {
		return nil, fmt.Errorf("xlog: rotation backups and age must not be negative")
	}

	path := filepath.Clean(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("xlog: create log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.maxSizeMB,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAgeDays,
		Compress:   cfg.compress,
		LocalTime:  cfg.localTime,
	}, nil
}
