package xrun

import (
	"bytes"
	"context"
	"sync"
)

// funcService 未命名的服务，Run 以序号为其命名。
type funcService func(ctx context.Context) error

func (f funcService) Run(ctx context.Context) error { return f(ctx) }

type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}
