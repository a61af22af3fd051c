package xschedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
	"github.com/omeyang/xschedule/pkg/schedule/xtask"
	"github.com/omeyang/xschedule/pkg/schedule/xtrigger"
)

func TestScheduler_AddGetRemove(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Bootstrap(testCtx(t)))

	iv, err := s.AddInterval("flush", time.Minute, noop)
	require.NoError(t, err)
	assert.True(t, iv.IsRunning())
	assert.True(t, s.Exists(xtask.KindInterval, "flush"))

	got, err := s.Get(xtask.KindInterval, "flush")
	require.NoError(t, err)
	assert.Same(t, iv, got)

	typed, err := s.Interval("flush")
	require.NoError(t, err)
	assert.Same(t, iv, typed)

	assert.True(t, s.Remove(xtask.KindInterval, "flush"))
	assert.False(t, iv.IsRunning())
	assert.False(t, s.Exists(xtask.KindInterval, "flush"))

	_, err = s.Get(xtask.KindInterval, "flush")
	require.ErrorIs(t, err, xtask.ErrTaskNotFound)
	assert.Equal(t, "No Interval was found with the given name (flush). Check your configuration.", err.Error())

	// 不存在的名称为空操作
	assert.False(t, s.Remove(xtask.KindInterval, "flush"))
}

func TestScheduler_TypedLookupMismatch(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Bootstrap(testCtx(t)))
	_, err := s.AddTimeout("warmup", time.Hour, noop)
	require.NoError(t, err)

	_, err = s.CronJob("warmup")
	assert.ErrorIs(t, err, xtask.ErrTaskNotFound)
	_, err = s.Interval("warmup")
	assert.ErrorIs(t, err, xtask.ErrTaskNotFound)
	to, err := s.Timeout("warmup")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, to.Delay())
}

func TestScheduler_DuplicateAfterBootstrap(t *testing.T) {
	s, clock := newTestScheduler(t)
	ctx := testCtx(t)
	require.NoError(t, s.Bootstrap(ctx))

	_, err := s.AddInterval("x", time.Second, noop)
	require.NoError(t, err)
	_, err = s.AddInterval("x", time.Second, noop)
	require.ErrorIs(t, err, xtask.ErrDuplicateTask)
	assert.Equal(t, "Interval with the given name (x) already exists.", err.Error())
	assert.Equal(t, []string{"x"}, s.List(xtask.KindInterval))

	// 同名不同类型互不影响
	_, err = s.AddTimeout("x", time.Second, noop)
	require.NoError(t, err)

	// 被拒绝的句柄没有残留计时器
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
}

func TestScheduler_ConcurrentAddSameName(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Bootstrap(testCtx(t)))

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		dups    atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddInterval("same", time.Minute, noop)
			switch {
			case err == nil:
				success.Add(1)
			case assert.ErrorIs(t, err, xtask.ErrDuplicateTask):
				dups.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
	assert.Equal(t, int32(15), dups.Load())
	assert.Equal(t, 1, s.Registry().Len(xtask.KindInterval))
}

func TestScheduler_GeneratedName(t *testing.T) {
	s, _ := newTestScheduler(t)

	to, err := s.AddTimeout("", time.Second, noop)
	require.NoError(t, err)
	_, err = uuid.Parse(to.Name())
	require.NoError(t, err)

	other, err := s.AddTimeout("", time.Second, noop)
	require.NoError(t, err)
	assert.NotEqual(t, to.Name(), other.Name())
}

func TestScheduler_PendingUntilBootstrap(t *testing.T) {
	s, clock := newTestScheduler(t)
	ctx := testCtx(t)

	job, err := s.AddCron("report", xtrigger.Pattern(xtrigger.EveryHour), noop)
	require.NoError(t, err)
	off, err := s.AddCron("manual", xtrigger.Pattern(xtrigger.EveryHour), noop, xtrigger.WithDisabled())
	require.NoError(t, err)
	iv, err := s.AddInterval("flush", time.Minute, noop)
	require.NoError(t, err)
	to, err := s.AddTimeout("warmup", time.Minute, noop)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Pending())
	assert.False(t, s.Bootstrapped())
	for _, kind := range xtask.Kinds() {
		assert.Empty(t, s.List(kind))
	}
	assert.False(t, job.IsRunning())

	require.NoError(t, s.Bootstrap(ctx))
	assert.True(t, s.Bootstrapped())
	assert.Zero(t, s.Pending())

	assert.Equal(t, []string{"report", "manual"}, s.List(xtask.KindCron))
	assert.Equal(t, []string{"flush"}, s.List(xtask.KindInterval))
	assert.Equal(t, []string{"warmup"}, s.List(xtask.KindTimeout))

	assert.True(t, job.IsRunning())
	assert.True(t, iv.IsRunning())
	assert.True(t, to.IsRunning())

	// 禁用的 cron 已登记但未运行，显式 Start 后运行
	assert.True(t, s.Exists(xtask.KindCron, "manual"))
	assert.False(t, off.IsRunning())
	off.Start()
	assert.True(t, off.IsRunning())

	require.NoError(t, clock.BlockUntilContext(ctx, 4))

	// 再次引导为空操作
	require.NoError(t, s.Bootstrap(ctx))
	assert.Len(t, s.List(xtask.KindCron), 2)
}

func TestScheduler_BootstrapDuplicateIsFatal(t *testing.T) {
	logger, buf := newTestLogger(t)
	s, clock := newTestScheduler(t, WithLogger(logger))
	ctx := testCtx(t)

	_, err := s.AddTimeout("first", time.Minute, noop)
	require.NoError(t, err)
	_, err = s.AddInterval("dup", time.Minute, noop)
	require.NoError(t, err)
	_, err = s.AddInterval("dup", time.Minute, noop)
	require.NoError(t, err, "duplicates are detected at bootstrap")

	err = s.Bootstrap(ctx)
	require.ErrorIs(t, err, xtask.ErrDuplicateTask)
	assert.False(t, s.Bootstrapped())
	for _, kind := range xtask.Kinds() {
		assert.Empty(t, s.List(kind), kind)
	}
	require.NoError(t, clock.BlockUntilContext(ctx, 0))
	assert.Contains(t, buf.messages(t, "ERROR"), "bootstrap failed")
}

func TestScheduler_BootstrapCanceled(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, err := s.AddInterval("flush", time.Minute, noop)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Bootstrap(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.List(xtask.KindInterval))
}

func TestScheduler_CronFires(t *testing.T) {
	s, clock := newTestScheduler(t)
	ctx := testCtx(t)
	require.NoError(t, s.Bootstrap(ctx))

	var calls atomic.Int32
	_, err := s.AddCron("tick", xtrigger.Pattern(xtrigger.EverySecond), counting(&calls))
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}
	require.Eventually(t, func() bool { return calls.Load() == 3 }, waitFor, time.Millisecond)
	require.NoError(t, s.Tracker().Wait(ctx))
	assert.Equal(t, int64(3), s.Stats().Runs())
}

func TestScheduler_TaskOptions(t *testing.T) {
	s, _ := newTestScheduler(t, WithTaskOptions(xtrigger.WithDisabled()))
	require.NoError(t, s.Bootstrap(testCtx(t)))

	job, err := s.AddCron("off", xtrigger.Pattern(xtrigger.EveryMinute), noop)
	require.NoError(t, err)
	assert.True(t, job.Disabled())
	assert.False(t, job.IsRunning())
}

func TestScheduler_InvalidTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.AddCron("bad", xtrigger.Pattern("nope"), noop)
	require.ErrorIs(t, err, xtask.ErrConfiguration)
	_, err = s.AddInterval("bad", 0, noop)
	require.ErrorIs(t, err, xtask.ErrConfiguration)
	_, err = s.AddTimeout("bad", -time.Second, noop)
	require.ErrorIs(t, err, xtask.ErrConfiguration)
	assert.Zero(t, s.Pending())
}

func TestScheduler_ShutdownIsExhaustive(t *testing.T) {
	s, clock := newTestScheduler(t)
	ctx := testCtx(t)

	_, err := s.AddCron("cron", xtrigger.Pattern(xtrigger.EverySecond), noop)
	require.NoError(t, err)
	_, err = s.AddInterval("interval", time.Second, noop)
	require.NoError(t, err)
	_, err = s.AddTimeout("timeout", time.Hour, noop)
	require.NoError(t, err)
	_, err = s.AddInterval("interval2", time.Second, noop)
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(ctx))

	// 绕过调度器直接插入注册表的任务同样被关闭
	direct, err := xtrigger.NewInterval("direct", time.Second, noop,
		xtrigger.WithClock(clock), xtrigger.WithLogger(xlog.Nop()))
	require.NoError(t, err)
	require.NoError(t, s.Registry().Add(xtask.KindInterval, "direct", direct))
	direct.Start()

	require.NoError(t, clock.BlockUntilContext(ctx, 5))
	require.NoError(t, s.Shutdown(ctx))

	for _, kind := range xtask.Kinds() {
		assert.Empty(t, s.List(kind), kind)
	}
	require.NoError(t, clock.BlockUntilContext(ctx, 0))
	assert.False(t, direct.IsRunning())
	assert.True(t, s.Closed())

	_, err = s.AddInterval("late", time.Second, noop)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Bootstrap(ctx), ErrClosed)
	require.NoError(t, s.Shutdown(ctx))
}

func TestScheduler_ShutdownWaitsForRunning(t *testing.T) {
	s, clock := newTestScheduler(t)
	ctx := testCtx(t)
	require.NoError(t, s.Bootstrap(ctx))

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := s.AddTimeout("slow", time.Second, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	<-started

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = s.Shutdown(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, s.List(xtask.KindTimeout))

	close(release)
	require.NoError(t, s.Shutdown(ctx))
	assert.Zero(t, s.Tracker().Active())
}
