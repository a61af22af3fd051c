package xtrigger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xschedule/pkg/schedule/xtask"
)

func countingFunc(n *atomic.Int32) Func {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestCronJob_EverySecond(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	ctx := testCtx(t)

	var calls atomic.Int32
	job, err := NewCron("tick", Pattern(EverySecond), countingFunc(&calls), quiet(clock, tr)...)
	require.NoError(t, err)

	job.Start()
	assert.True(t, job.IsRunning())
	assert.True(t, job.LastFireTime().IsZero())

	for range 3 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	require.Eventually(t, func() bool { return calls.Load() == 3 }, waitFor, time.Millisecond)
	assert.Equal(t, testStart.Add(3*time.Second), job.LastFireTime().UTC())
	assert.Equal(t, 3, job.Runs())

	job.Stop()
	assert.False(t, job.IsRunning())
	require.NoError(t, clock.BlockUntilContext(ctx, 0))
	require.NoError(t, tr.Wait(ctx))
}

func TestCronJob_LastFireTimeIsScheduledInstant(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	ctx := testCtx(t)

	var calls atomic.Int32
	job, err := NewCron("half", Pattern(Every30Seconds), countingFunc(&calls), quiet(clock, tr)...)
	require.NoError(t, err)
	job.Start()
	defer job.Stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, testStart.Add(30*time.Second), job.LastFireTime().UTC())
	assert.Equal(t, testStart.Add(60*time.Second), job.NextFireTime().UTC())
	require.NoError(t, tr.Wait(ctx))
}

func TestCronJob_PreventOverrun(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	stats := NewStats()
	ctx := testCtx(t)

	var calls atomic.Int32
	slow := func(context.Context) error {
		calls.Add(1)
		<-clock.After(61 * time.Second)
		return nil
	}
	job, err := NewCron("slow", Pattern(EveryMinute), slow,
		append(quiet(clock, tr), WithPreventOverrun(), WithStats(stats))...)
	require.NoError(t, err)
	job.Start()
	defer job.Stop()

	// 00:01:00 触发，回调阻塞到 00:02:01
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	// 等待回调的 After 与下一轮计时器
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(time.Minute)

	// 00:02:00 时上一轮仍在执行，被跳过
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), stats.Skips())
	assert.Equal(t, 1, job.Runs())

	// 放行回调
	clock.Advance(time.Second)
	require.NoError(t, tr.Wait(ctx))
	assert.Equal(t, int64(1), stats.Runs())
}

func TestCronJob_MinInterval(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	stats := NewStats()
	ctx := testCtx(t)

	var calls atomic.Int32
	job, err := NewCron("spaced", Pattern(EverySecond), countingFunc(&calls),
		append(quiet(clock, tr), WithMinInterval(2500*time.Millisecond), WithStats(stats))...)
	require.NoError(t, err)
	job.Start()
	defer job.Stop()

	// 1s 执行，2s/3s 跳过，4s 执行
	for range 4 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, int64(2), stats.Skips())
	assert.Equal(t, testStart.Add(4*time.Second), job.LastFireTime().UTC())
	require.NoError(t, tr.Wait(ctx))
}

func TestCronJob_MaxRuns(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	ctx := testCtx(t)

	var calls atomic.Int32
	job, err := NewCron("twice", Pattern(EverySecond), countingFunc(&calls),
		append(quiet(clock, tr), WithMaxRuns(2))...)
	require.NoError(t, err)
	job.Start()

	for range 2 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	require.Eventually(t, func() bool { return !job.IsRunning() }, waitFor, time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 0))
	require.NoError(t, tr.Wait(ctx))
	assert.Equal(t, int32(2), calls.Load())

	job.Start()
	assert.False(t, job.IsRunning(), "exhausted job must not restart")
	assert.True(t, job.NextFireTime().IsZero())
	job.Stop()
}

func TestCronJob_At(t *testing.T) {
	t.Run("fires once", func(t *testing.T) {
		clock := newFakeClock()
		tr := NewTracker()
		ctx := testCtx(t)

		var calls atomic.Int32
		job, err := NewCron("once", At(testStart.Add(5*time.Second)), countingFunc(&calls), quiet(clock, tr)...)
		require.NoError(t, err)
		job.Start()

		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Second)

		require.Eventually(t, func() bool { return !job.IsRunning() }, waitFor, time.Millisecond)
		require.NoError(t, tr.Wait(ctx))
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, testStart.Add(5*time.Second), job.LastFireTime())
	})

	t.Run("past instant never fires", func(t *testing.T) {
		clock := newFakeClock()
		tr := NewTracker()

		var calls atomic.Int32
		job, err := NewCron("past", At(testStart.Add(-time.Hour)), countingFunc(&calls), quiet(clock, tr)...)
		require.NoError(t, err)
		job.Start()

		require.Eventually(t, func() bool { return !job.IsRunning() }, waitFor, time.Millisecond)
		assert.Zero(t, calls.Load())
	})
}

func TestCronJob_StopAndRestart(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	ctx := testCtx(t)

	var calls atomic.Int32
	job, err := NewCron("restart", Pattern(EverySecond), countingFunc(&calls), quiet(clock, tr)...)
	require.NoError(t, err)

	job.Start()
	job.Start()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	job.Stop()
	job.Stop()
	require.NoError(t, clock.BlockUntilContext(ctx, 0))

	// 停止期间的时刻不补触发
	clock.Advance(10 * time.Second)
	job.Start()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, testStart.Add(11*time.Second), job.LastFireTime().UTC())

	job.Stop()
	require.NoError(t, tr.Wait(ctx))
}

func TestCronJob_StopFromCallback(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	ctx := testCtx(t)

	var job *CronJob
	stopped := make(chan struct{})
	fn := func(context.Context) error {
		job.Stop()
		close(stopped)
		return nil
	}
	var err error
	job, err = NewCron("self-stop", Pattern(EverySecond), fn, quiet(clock, tr)...)
	require.NoError(t, err)
	job.Start()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("callback did not stop the job")
	}
	assert.False(t, job.IsRunning())
	require.NoError(t, tr.Wait(ctx))
}

func TestCronJob_FailureIsolated(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker()
	stats := NewStats()
	ctx := testCtx(t)

	var calls atomic.Int32
	fn := func(context.Context) error {
		if calls.Add(1) == 1 {
			panic("first run explodes")
		}
		return errors.New("second run fails")
	}
	job, err := NewCron("flaky", Pattern(EverySecond), fn, append(quiet(clock, tr), WithStats(stats))...)
	require.NoError(t, err)
	job.Start()
	defer job.Stop()

	for range 3 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}
	require.Eventually(t, func() bool { return calls.Load() == 3 }, waitFor, time.Millisecond)
	require.NoError(t, tr.Wait(ctx))
	assert.True(t, job.IsRunning())
	assert.Equal(t, int64(3), stats.Failures())
}

func TestNewCron_Invalid(t *testing.T) {
	noop := func(context.Context) error { return nil }
	tests := []struct {
		name string
		ct   CronTime
		fn   Func
		opts []Option
	}{
		{"bad pattern", Pattern("not a cron"), noop, nil},
		{"empty pattern", Pattern("  "), noop, nil},
		{"too many fields", Pattern("* * * * * * *"), noop, nil},
		{"nil callback", Pattern(EverySecond), nil, nil},
		{"unknown timezone", Pattern(EverySecond), noop, []Option{WithTimezone("Mars/Olympus")}},
		{"timezone and offset", Pattern(EverySecond), noop, []Option{WithTimezone("UTC"), WithUTCOffset(60)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCron("bad", tt.ct, tt.fn, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, xtask.ErrConfiguration)
		})
	}
}

func TestNewCron_Location(t *testing.T) {
	noop := func(context.Context) error { return nil }

	job, err := NewCron("tz", Pattern(EveryHour), noop, WithTimezone("Asia/Shanghai"))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", job.Location().String())

	job, err = NewCron("offset", Pattern(EveryHour), noop, WithUTCOffset(-330))
	require.NoError(t, err)
	_, offset := testStart.In(job.Location()).Zone()
	assert.Equal(t, -330*60, offset)
	assert.Equal(t, "UTC-05:30", job.Location().String())

	job, err = NewCron("local", Pattern(EveryHour), noop, WithDisabled())
	require.NoError(t, err)
	assert.Equal(t, time.Local, job.Location())
	assert.True(t, job.Disabled())
	assert.False(t, job.IsRunning())
	assert.Equal(t, xtask.KindCron, job.Kind())
	assert.Equal(t, EveryHour, job.CronTime().String())
}
