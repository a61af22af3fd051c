package xschedule

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCallback 配置文件变更后调用，err 非 nil 时 cfg 无效。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视器配置选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间，默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watcher 配置文件监视器。
//
// 监视文件所在目录而非文件本身，编辑器先删后建或 rename 覆盖都能收到事件。
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	reloads sync.WaitGroup // 已排期或执行中的 reload
}

// Watch 创建监视器，需调用 Start 开始监视。
func Watch(path string, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if _, err := detectFormat(path); err != nil {
		return nil, err
	}
	o := &watchOptions{debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(o)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xschedule: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("xschedule: watch directory %s: %w", dir, err),
			fsWatcher.Close(),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		watcher:  fsWatcher,
		callback: callback,
		debounce: o.debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start 在后台开始监视，重复调用为空操作。
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.ctx.Err() != nil {
		return
	}
	w.running = true
	go w.run()
}

// Stop 停止监视，等待监视循环与执行中的回调结束。返回后不再调用回调。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		w.reloads.Wait()
		return nil
	}
	w.stopTimer()
	w.cancel()
	running := w.running
	w.running = false
	w.mu.Unlock()

	err := w.watcher.Close()
	if running {
		<-w.done
	}
	w.reloads.Wait()
	return err
}

// stopTimer 取消尚未触发的 reload，调用方持有 mu。
func (w *Watcher) stopTimer() {
	if w.timer != nil && w.timer.Stop() {
		w.reloads.Done()
	}
	w.timer = nil
}

// Run 启动监视并阻塞到 ctx 结束，随后停止监视，可作为长驻服务运行。
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	select {
	case <-ctx.Done():
	case <-w.ctx.Done():
	}
	return w.Stop()
}

func (w *Watcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.callback != nil {
				w.callback(Config{}, fmt.Errorf("xschedule: watch error: %w", err))
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	w.stopTimer()
	w.reloads.Add(1)
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	defer w.reloads.Done()
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := LoadConfig(w.path)
	if w.callback != nil {
		w.callback(cfg, err)
	}
}
