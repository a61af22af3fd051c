package xtask

import (
	"slices"
	"sync"
)

// Handle 注册表持有的任务句柄。
//
// Stop 必须幂等，且允许在任务回调内部调用。
type Handle interface {
	Stop()
}

// namespace 单个任务类型的命名空间，order 保留插入顺序。
type namespace struct {
	handles map[string]Handle
	order   []string
}

func (ns *namespace) evict(name string) {
	delete(ns.handles, name)
	if i := slices.Index(ns.order, name); i >= 0 {
		ns.order = slices.Delete(ns.order, i, i+1)
	}
}

// Registry 任务注册表。
//
// 并发安全。同一类型内名称唯一，并发插入同名任务时只有一个成功。
type Registry struct {
	mu     sync.RWMutex
	spaces map[Kind]*namespace
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	r := &Registry{spaces: make(map[Kind]*namespace, 3)}
	for _, k := range Kinds() {
		r.spaces[k] = &namespace{handles: make(map[string]Handle)}
	}
	return r
}

// Add 插入任务句柄。
//
// 同名任务已存在时返回 [*DuplicateTaskError]，注册表不变。
func (r *Registry) Add(kind Kind, name string, h Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.spaces[kind]
	if !ok {
		return ErrUnknownKind
	}
	if _, exists := ns.handles[name]; exists {
		return &DuplicateTaskError{Kind: kind, Name: name}
	}
	ns.handles[name] = h
	ns.order = append(ns.order, name)
	return nil
}

// Get 按名称查询任务句柄，不存在时返回 [*TaskNotFoundError]。
func (r *Registry) Get(kind Kind, name string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ns, ok := r.spaces[kind]; ok {
		if h, ok := ns.handles[name]; ok {
			return h, nil
		}
	}
	return nil, &TaskNotFoundError{Kind: kind, Name: name}
}

// Lookup 按名称查询并断言为具体句柄类型。
//
// 句柄存在但类型不匹配时同样返回 [*TaskNotFoundError]。
func Lookup[H Handle](r *Registry, kind Kind, name string) (H, error) {
	var zero H
	h, err := r.Get(kind, name)
	if err != nil {
		return zero, err
	}
	typed, ok := h.(H)
	if !ok {
		return zero, &TaskNotFoundError{Kind: kind, Name: name}
	}
	return typed, nil
}

// Exists 判断任务是否存在，不会失败。
func (r *Registry) Exists(kind Kind, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.spaces[kind]
	if !ok {
		return false
	}
	_, ok = ns.handles[name]
	return ok
}

// List 按插入顺序返回指定类型的全部任务名。
func (r *Registry) List(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.spaces[kind]
	if !ok {
		return nil
	}
	return slices.Clone(ns.order)
}

// Len 返回指定类型的任务数。
func (r *Registry) Len(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ns, ok := r.spaces[kind]; ok {
		return len(ns.handles)
	}
	return 0
}

// Remove 摘除并停止任务，返回任务是否存在。
//
// 名称不存在时为空操作。Stop 在锁外执行，允许句柄在 Stop 中回访注册表。
func (r *Registry) Remove(kind Kind, name string) bool {
	r.mu.Lock()
	ns, ok := r.spaces[kind]
	if !ok {
		r.mu.Unlock()
		return false
	}
	h, ok := ns.handles[name]
	if ok {
		ns.evict(name)
	}
	r.mu.Unlock()

	if ok {
		h.Stop()
	}
	return ok
}

// RemoveAll 摘除并停止指定类型的全部任务，按插入顺序返回被摘除的任务名。
func (r *Registry) RemoveAll(kind Kind) []string {
	r.mu.Lock()
	ns, ok := r.spaces[kind]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	names := ns.order
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		handles = append(handles, ns.handles[name])
	}
	ns.handles = make(map[string]Handle)
	ns.order = nil
	r.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
	return names
}
