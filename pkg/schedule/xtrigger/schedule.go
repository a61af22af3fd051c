package xtrigger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// parser 秒字段可选，兼容 5 字段与 6 字段表达式。
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// searchHorizon 与 robfig/cron 一致，超过 5 年没有匹配视为不再触发。
const searchHorizon = 5 * 365 * 24 * time.Hour

var (
	errEmptyPattern     = errors.New("empty cron pattern")
	errTimezoneConflict = errors.New("timezone and utc offset are mutually exclusive")
)

// resolveLocation 解析时区选项，未设置时使用 time.Local。
func resolveLocation(o *options) (*time.Location, error) {
	switch {
	case o.timezone != "" && o.utcOffset != nil:
		return nil, errTimezoneConflict
	case o.timezone != "":
		loc, err := time.LoadLocation(o.timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", o.timezone, err)
		}
		return loc, nil
	case o.utcOffset != nil:
		m := *o.utcOffset
		sign, abs := '+', m
		if m < 0 {
			sign, abs = '-', -m
		}
		return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60), m*60), nil
	default:
		return time.Local, nil
	}
}

// locationError 包装 resolveLocation 的错误。
func locationError(name string, err error) error {
	if errors.Is(err, errTimezoneConflict) {
		return &xtask.ConfigurationError{Kind: xtask.KindCron, Name: name, Reason: errTimezoneConflict.Error()}
	}
	return &xtask.ConfigurationError{Kind: xtask.KindCron, Name: name, Reason: "invalid timezone", Err: err}
}

// buildSchedule 把触发时间编译为 cron.Schedule。
func buildSchedule(ct CronTime, loc *time.Location, mode DayMode) (cron.Schedule, error) {
	if ct.IsAt() {
		return atSchedule{at: ct.at}, nil
	}
	expr := strings.TrimSpace(ct.pattern)
	if expr == "" {
		return nil, errEmptyPattern
	}
	if hasTZPrefix(expr) && !strings.Contains(expr, " ") {
		// robfig/cron 对缺少表达式的时区前缀会越界
		return nil, fmt.Errorf("missing fields after timezone prefix: %q", expr)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		// @every 与时区、日组合方式无关
		return sched, nil
	}
	if !hasTZPrefix(expr) {
		spec.Location = loc
	}
	if mode == DayModeAND {
		return andSchedule{spec: spec}, nil
	}
	return spec, nil
}

func hasTZPrefix(expr string) bool {
	return strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=")
}

// atSchedule 绝对时刻，只触发一次。
type atSchedule struct {
	at time.Time
}

func (s atSchedule) Next(t time.Time) time.Time {
	if s.at.After(t) {
		return s.at
	}
	return time.Time{}
}

// starBit 与 robfig/cron 内部的 "*" 标记位一致。
const starBit = 1 << 63

// andSchedule 要求日与星期同时匹配。
//
// robfig/cron 在两个字段都非 "*" 时按 OR 组合，这里在其结果上过滤，
// 不匹配时跳到次日零点继续查找。
type andSchedule struct {
	spec *cron.SpecSchedule
}

func (s andSchedule) Next(t time.Time) time.Time {
	limit := t.Add(searchHorizon)
	for {
		n := s.spec.Next(t)
		if n.IsZero() || n.After(limit) {
			return time.Time{}
		}
		if s.matchesDay(n) {
			return n
		}
		local := n.In(s.spec.Location)
		midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.spec.Location)
		t = midnight.Add(-time.Second)
	}
}

func (s andSchedule) matchesDay(t time.Time) bool {
	local := t.In(s.spec.Location)
	dom := s.spec.Dom&^starBit&(1<<uint(local.Day())) != 0 || s.spec.Dom&starBit != 0
	dow := s.spec.Dow&^starBit&(1<<uint(local.Weekday())) != 0 || s.spec.Dow&starBit != 0
	return dom && dow
}

// NextTimes 预览从 from 开始的 n 个触发时刻，用于校验与展示。
//
// 只读取时区与日组合方式选项。调度不再触发时返回的切片可能短于 n。
func NextTimes(ct CronTime, n int, from time.Time, opts ...Option) ([]time.Time, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	loc, err := resolveLocation(o)
	if err != nil {
		return nil, locationError("", err)
	}
	sched, err := buildSchedule(ct, loc, o.dayMode)
	if err != nil {
		return nil, &xtask.ConfigurationError{Kind: xtask.KindCron, Reason: "invalid cron time", Err: err}
	}
	out := make([]time.Time, 0, max(n, 0))
	t := from
	for range n {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t.In(loc))
	}
	return out, nil
}
