package xtrigger

import (
	"context"
	"sync"
)

// Tracker 统计执行中的回调数量。
//
// 多个任务共享同一个 Tracker 时，[Tracker.Wait] 等待所有任务的回调结束，
// 用于关闭阶段排空。
type Tracker struct {
	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// NewTracker 创建计数器。
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) add() {
	t.mu.Lock()
	if t.active == 0 {
		t.idle = make(chan struct{})
	}
	t.active++
	t.mu.Unlock()
}

func (t *Tracker) done() {
	t.mu.Lock()
	t.active--
	if t.active == 0 {
		close(t.idle)
	}
	t.mu.Unlock()
}

// Active 返回执行中的回调数量。
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Wait 等待执行中的回调全部结束，ctx 结束时返回 ctx.Err()。
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.active == 0 {
			t.mu.Unlock()
			return nil
		}
		idle := t.idle
		t.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
