package xschedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

// 配置加载相关错误。
var (
	// ErrEmptyPath 配置文件路径为空。
	ErrEmptyPath = errors.New("xschedule: empty config path")
	// ErrUnsupportedFormat 不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xschedule: unsupported config format")
	// ErrLoadFailed 读取配置文件失败。
	ErrLoadFailed = errors.New("xschedule: failed to load config")
	// ErrParseFailed 解析配置失败。
	ErrParseFailed = errors.New("xschedule: failed to parse config")
	// ErrInvalidConfig 配置内容非法。
	ErrInvalidConfig = errors.New("xschedule: invalid config")
)

// Format 配置格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 模块配置。
//
// CronJobs / Intervals / Timeouts 关闭时，探索阶段跳过对应类型的全部声明。
type Config struct {
	CronJobs        bool          `koanf:"cron_jobs" json:"cron_jobs"`
	Intervals       bool          `koanf:"intervals" json:"intervals"`
	Timeouts        bool          `koanf:"timeouts" json:"timeouts"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
	Jobs            []JobConfig   `koanf:"jobs" json:"jobs,omitempty"`
}

// DefaultConfig 三类任务均启用，关闭等待 30 秒。
func DefaultConfig() Config {
	return Config{
		CronJobs:        true,
		Intervals:       true,
		Timeouts:        true,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Enabled 判断任务类型是否启用，未知类型视为启用，由注册阶段报错。
func (c Config) Enabled(kind xtask.Kind) bool {
	switch kind {
	case xtask.KindCron:
		return c.CronJobs
	case xtask.KindInterval:
		return c.Intervals
	case xtask.KindTimeout:
		return c.Timeouts
	default:
		return true
	}
}

// Validate 校验全部任务，并检查同类型内重名。
func (c Config) Validate() error {
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Jobs))
	var errs []error
	for i := range c.Jobs {
		job := &c.Jobs[i]
		if err := job.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d]: %w", i, err))
			continue
		}
		key := job.key()
		if _, dup := seen[key]; dup {
			kind, _ := xtask.ParseKind(job.Kind)
			errs = append(errs, fmt.Errorf("jobs[%d]: %w", i, &xtask.DuplicateTaskError{Kind: kind, Name: job.Name}))
			continue
		}
		seen[key] = struct{}{}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// JobConfig 配置文件中声明的任务。
//
// Every 对 interval 是周期，对 timeout 是延迟。cron 任务的 Pattern 与 At
// 二选一，At 为 RFC3339 时刻。Handler 为空时按 Name 解析回调。
type JobConfig struct {
	Name           string        `koanf:"name" json:"name"`
	Kind           string        `koanf:"kind" json:"kind"`
	Pattern        string        `koanf:"pattern" json:"pattern,omitempty"`
	At             string        `koanf:"at" json:"at,omitempty"`
	Every          time.Duration `koanf:"every" json:"every,omitempty"`
	Timezone       string        `koanf:"timezone" json:"timezone,omitempty"`
	UTCOffset      *int          `koanf:"utc_offset" json:"utc_offset,omitempty"`
	Disabled       bool          `koanf:"disabled" json:"disabled,omitempty"`
	PreventOverrun bool          `koanf:"prevent_overrun" json:"prevent_overrun,omitempty"`
	MinInterval    time.Duration `koanf:"min_interval" json:"min_interval,omitempty"`
	MaxRuns        int           `koanf:"max_runs" json:"max_runs,omitempty"`
	DayMode        string        `koanf:"day_mode" json:"day_mode,omitempty"`
	Timeout        time.Duration `koanf:"timeout" json:"timeout,omitempty"`
	Retry          uint          `koanf:"retry" json:"retry,omitempty"`
	RetryDelay     time.Duration `koanf:"retry_delay" json:"retry_delay,omitempty"`
	Handler        string        `koanf:"handler" json:"handler,omitempty"`
	Command        []string      `koanf:"command" json:"command,omitempty"`
}

func (j *JobConfig) key() string {
	return strings.ToLower(strings.TrimSpace(j.Kind)) + "/" + j.Name
}

// HandlerName 返回解析回调所用的名称。
func (j *JobConfig) HandlerName() string {
	if j.Handler != "" {
		return j.Handler
	}
	return j.Name
}

// Validate 校验任务声明，cron 表达式会实际编译一次。
func (j *JobConfig) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return errors.New("name is required")
	}
	kind, err := xtask.ParseKind(j.Kind)
	if err != nil {
		return &xtask.ConfigurationError{Kind: xtask.Kind(j.Kind), Name: j.Name, Reason: "invalid kind", Err: err}
	}
	invalid := func(reason string) error {
		return &xtask.ConfigurationError{Kind: kind, Name: j.Name, Reason: reason}
	}
	switch kind {
	case xtask.KindCron:
		if (j.Pattern == "") == (j.At == "") {
			return invalid("exactly one of pattern and at is required")
		}
		if j.DayMode != "" && j.DayMode != "or" && j.DayMode != "and" {
			return invalid(fmt.Sprintf("unknown day_mode %q", j.DayMode))
		}
		ct, err := j.CronTime()
		if err != nil {
			return err
		}
		opts, err := j.Options()
		if err != nil {
			return err
		}
		if _, err := xtrigger.NextTimes(ct, 1, time.Now(), opts...); err != nil {
			return err
		}
	case xtask.KindInterval:
		if j.Every <= 0 {
			return invalid("every must be positive")
		}
	case xtask.KindTimeout:
		if j.Every < 0 {
			return invalid("every must not be negative")
		}
	}
	if j.MaxRuns < 0 {
		return invalid("max_runs must not be negative")
	}
	return nil
}

// CronTime 返回 cron 触发时间。
func (j *JobConfig) CronTime() (xtrigger.CronTime, error) {
	if j.At == "" {
		return xtrigger.Pattern(j.Pattern), nil
	}
	at, err := time.Parse(time.RFC3339, j.At)
	if err != nil {
		return xtrigger.CronTime{}, &xtask.ConfigurationError{Kind: xtask.KindCron, Name: j.Name, Reason: "invalid at", Err: err}
	}
	return xtrigger.At(at), nil
}

// Options 把声明转换为任务选项。
func (j *JobConfig) Options() ([]xtrigger.Option, error) {
	var opts []xtrigger.Option
	if j.Timezone != "" {
		opts = append(opts, xtrigger.WithTimezone(j.Timezone))
	}
	if j.UTCOffset != nil {
		opts = append(opts, xtrigger.WithUTCOffset(*j.UTCOffset))
	}
	if j.Disabled {
		opts = append(opts, xtrigger.WithDisabled())
	}
	if j.PreventOverrun {
		opts = append(opts, xtrigger.WithPreventOverrun())
	}
	if j.MinInterval > 0 {
		opts = append(opts, xtrigger.WithMinInterval(j.MinInterval))
	}
	if j.MaxRuns > 0 {
		opts = append(opts, xtrigger.WithMaxRuns(j.MaxRuns))
	}
	switch j.DayMode {
	case "", "or":
	case "and":
		opts = append(opts, xtrigger.WithDayMode(xtrigger.DayModeAND))
	default:
		return nil, &xtask.ConfigurationError{Kind: xtask.KindCron, Name: j.Name, Reason: fmt.Sprintf("unknown day_mode %q", j.DayMode)}
	}
	if j.Timeout > 0 {
		opts = append(opts, xtrigger.WithTimeout(j.Timeout))
	}
	if j.Retry > 1 {
		opts = append(opts, xtrigger.WithRetry(j.Retry, j.RetryDelay))
	}
	return opts, nil
}

// LoadConfig 从文件加载配置，格式由扩展名决定（.yaml/.yml/.json）。
//
// 文件中未出现的字段保留 [DefaultConfig] 的值。
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return LoadConfigBytes(data, format)
}

// LoadConfigBytes 从字节数据加载配置，空数据得到 [DefaultConfig]。
func LoadConfigBytes(data []byte, format Format) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")
	if len(data) > 0 {
		if err := loadData(k, data, format); err != nil {
			return Config{}, err
		}
	} else if format != FormatYAML && format != FormatJSON {
		return Config{}, ErrUnsupportedFormat
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
