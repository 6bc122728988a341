package di

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
)

// Scope 表示一个有界的解析上下文（例如一次请求）。
// 作用域拥有其中创建的 Scoped 实例；作用域关闭时所有权结束，
// 实例被释放。状态机：Open → Closed，单向且终止。
type Scope interface {
	Container

	// Closed 报告作用域是否已关闭。
	Closed() bool
}

// scopeEntry 是单个 Scoped 实例的缓存槽。
type scopeEntry struct {
	val atomic.Value // 持有 *scopeInstance，未创建时为空
	mu  sync.Mutex   // 保证槽内至多构造一次
}

// scopeInstance 包装缓存的实例。
// 间接一层让 atomic.Value 不受实例动态类型差异的限制。
type scopeInstance struct {
	value any
}

type scope struct {
	parent    *container
	entries   []scopeEntry // 按 ServiceDefinition.ID 索引
	closed    atomic.Bool
	closeOnce sync.Once
}

func newScope(parent *container) *scope {
	return &scope{
		parent:  parent,
		entries: make([]scopeEntry, parent.serviceCount()),
	}
}

// Add 作用域上不允许注册：注册集由根容器在 Build 之前独占定义。
func (s *scope) Add(def *ServiceDefinition) error {
	return fmt.Errorf("di: 无法在作用域上注册服务")
}

// Build 作用域基于已构建的父容器，无操作。
func (s *scope) Build() error {
	return nil
}

// CreateScope 委托给根容器。
// 这是单例内部按需使用 Scoped 服务的显式逃生通道：
// 创建子作用域、用完关闭，而不是放宽俘获依赖规则。
func (s *scope) CreateScope() Scope {
	return s.parent.CreateScope()
}

// Get 以本作用域为活动作用域解析实例。
func (s *scope) Get(typ reflect.Type) (any, error) {
	return s.GetNamed(typ, "")
}

// GetNamed 以本作用域为活动作用域解析命名实例。
func (s *scope) GetNamed(typ reflect.Type, name string) (any, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: %v", ErrScopeClosed, ServiceKey{Type: typ, Name: name})
	}

	key := ServiceKey{Type: typ, Name: name}
	def, ok := s.parent.definition(key)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, key)
	}

	switch def.Lifetime {
	case Singleton:
		// 单例只依赖单例（Build 时已验证），直接走根容器
		return s.parent.GetNamed(typ, name)

	case Transient:
		// 以本作用域为上下文构造，瞬态的 Scoped 依赖落在本作用域
		return s.parent.resolver.createInstance(s, def)

	case Scoped:
		entry := &s.entries[def.ID]

		// 快速路径：已创建
		if cached := entry.val.Load(); cached != nil {
			return cached.(*scopeInstance).value, nil
		}

		// 慢速路径：带锁构造，双重检查保证每个作用域至多一次
		entry.mu.Lock()
		defer entry.mu.Unlock()

		if cached := entry.val.Load(); cached != nil {
			return cached.(*scopeInstance).value, nil
		}
		if s.closed.Load() {
			return nil, fmt.Errorf("%w: %v", ErrScopeClosed, key)
		}

		instance, err := s.parent.resolver.createInstance(s, def)
		if err != nil {
			return nil, err
		}

		entry.val.Store(&scopeInstance{value: instance})
		return instance, nil
	}

	return nil, fmt.Errorf("di: 未知生命周期 %v", def.Lifetime)
}

// Close 释放本作用域缓存的全部 Scoped 实例并标记作用域终止。
// 实现了 io.Closer 的实例会被关闭一次；重复调用是无操作。
func (s *scope) Close() error {
	var errs []error

	s.closeOnce.Do(func() {
		s.closed.Store(true)

		// 逆 ID 顺序释放。持有槽锁以避免与进行中的构造竞争。
		for i := len(s.entries) - 1; i >= 0; i-- {
			entry := &s.entries[i]
			entry.mu.Lock()
			cached := entry.val.Load()
			entry.mu.Unlock()

			if cached == nil {
				continue
			}
			if closer, ok := cached.(*scopeInstance).value.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("di: 释放 Scoped 实例失败: %w", err))
				}
			}
		}
	})

	return errors.Join(errs...)
}

// Closed 报告作用域是否已关闭。
func (s *scope) Closed() bool {
	return s.closed.Load()
}

func (s *scope) definition(key ServiceKey) (*ServiceDefinition, bool) {
	return s.parent.definition(key)
}

func (s *scope) serviceCount() int {
	return s.parent.serviceCount()
}
