package xtrigger

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

// counters 一组执行计数，全局与单任务共用。
type counters struct {
	runs     atomic.Int64
	success  atomic.Int64
	failures atomic.Int64
	skips    atomic.Int64

	totalNs atomic.Int64
	minNs   atomic.Int64
	maxNs   atomic.Int64

	mu      sync.RWMutex
	lastRun time.Time
	lastDur time.Duration
	lastErr error
}

func newCounters() *counters {
	c := &counters{}
	c.minNs.Store(math.MaxInt64)
	return c
}

func (c *counters) record(at time.Time, d time.Duration, err error) {
	ns := int64(d)
	c.runs.Add(1)
	c.totalNs.Add(ns)
	if err != nil {
		c.failures.Add(1)
	} else {
		c.success.Add(1)
	}
	for old := c.minNs.Load(); ns < old && !c.minNs.CompareAndSwap(old, ns); old = c.minNs.Load() {
	}
	for old := c.maxNs.Load(); ns > old && !c.maxNs.CompareAndSwap(old, ns); old = c.maxNs.Load() {
	}

	c.mu.Lock()
	c.lastRun = at
	c.lastDur = d
	c.lastErr = err
	c.mu.Unlock()
}

func (c *counters) snapshot() CountersSnapshot {
	runs := c.runs.Load()
	snap := CountersSnapshot{
		Runs:     runs,
		Success:  c.success.Load(),
		Failures: c.failures.Load(),
		Skips:    c.skips.Load(),
		Max:      time.Duration(c.maxNs.Load()),
	}
	if runs > 0 {
		snap.SuccessRate = float64(snap.Success) / float64(runs)
		snap.Avg = time.Duration(c.totalNs.Load() / runs)
		snap.Min = time.Duration(c.minNs.Load())
	}
	c.mu.RLock()
	snap.LastRun = c.lastRun
	snap.LastDuration = c.lastDur
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	c.mu.RUnlock()
	return snap
}

// CountersSnapshot 计数快照，可直接 JSON 序列化。
type CountersSnapshot struct {
	Runs         int64         `json:"runs"`
	Success      int64         `json:"success"`
	Failures     int64         `json:"failures"`
	Skips        int64         `json:"skips"`
	SuccessRate  float64       `json:"success_rate"`
	LastRun      time.Time     `json:"last_run,omitzero"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Avg          time.Duration `json:"avg_duration"`
	Min          time.Duration `json:"min_duration"`
	Max          time.Duration `json:"max_duration"`
}

// StatsSnapshot 全局快照，Tasks 以 "kind/name" 为 key。
type StatsSnapshot struct {
	CountersSnapshot
	Tasks map[string]CountersSnapshot `json:"tasks,omitempty"`
}

// Stats 执行统计。
//
// 并发安全，多个任务可共享同一实例。跳过（重叠、最小间隔、熔断）
// 只计入 Skips，不计入 Runs。
type Stats struct {
	total *counters
	tasks sync.Map // map[string]*counters
}

// NewStats 创建统计。
func NewStats() *Stats {
	return &Stats{total: newCounters()}
}

func statsKey(kind xtask.Kind, name string) string {
	return string(kind) + "/" + name
}

func (s *Stats) task(kind xtask.Kind, name string) *counters {
	key := statsKey(kind, name)
	if v, ok := s.tasks.Load(key); ok {
		return v.(*counters)
	}
	v, _ := s.tasks.LoadOrStore(key, newCounters())
	return v.(*counters)
}

func (s *Stats) recordRun(kind xtask.Kind, name string, at time.Time, d time.Duration, err error) {
	if s == nil {
		return
	}
	s.total.record(at, d, err)
	s.task(kind, name).record(at, d, err)
}

func (s *Stats) recordSkip(kind xtask.Kind, name string) {
	if s == nil {
		return
	}
	s.total.skips.Add(1)
	s.task(kind, name).skips.Add(1)
}

// Runs 总执行次数。
func (s *Stats) Runs() int64 { return s.total.runs.Load() }

// Failures 总失败次数。
func (s *Stats) Failures() int64 { return s.total.failures.Load() }

// Skips 总跳过次数。
func (s *Stats) Skips() int64 { return s.total.skips.Load() }

// SuccessRate 成功率（0-1），未执行时为 0。
func (s *Stats) SuccessRate() float64 {
	return s.total.snapshot().SuccessRate
}

// Task 返回单个任务的快照，任务从未执行或跳过时 ok 为 false。
func (s *Stats) Task(kind xtask.Kind, name string) (CountersSnapshot, bool) {
	v, ok := s.tasks.Load(statsKey(kind, name))
	if !ok {
		return CountersSnapshot{}, false
	}
	return v.(*counters).snapshot(), true
}

// Forget 丢弃单个任务的统计，用于任务被移除后。
func (s *Stats) Forget(kind xtask.Kind, name string) {
	s.tasks.Delete(statsKey(kind, name))
}

// Snapshot 返回全局与各任务的快照。
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		CountersSnapshot: s.total.snapshot(),
		Tasks:            make(map[string]CountersSnapshot),
	}
	s.tasks.Range(func(k, v any) bool {
		snap.Tasks[k.(string)] = v.(*counters).snapshot()
		return true
	})
	return snap
}
