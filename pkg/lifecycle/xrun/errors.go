package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而退出，配合 errors.Is 使用。
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilService 服务为 nil。
	ErrNilService = errors.New("xrun: nil service")
)

// SignalError 携带触发退出的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "xrun: received signal <nil>"
	}
	return fmt.Sprintf("xrun: received signal %s", e.Signal)
}

// Is 支持 errors.Is(err, ErrSignal)。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}
