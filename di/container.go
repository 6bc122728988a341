package di

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
)

// Container 是服务注册表的接口。
// 注册表把抽象的 ServiceKey 映射到构造配方和生命周期策略，
// 按需解析实例并按声明的生命周期复用。
type Container interface {
	// Add 注册服务定义。Build 之后注册集不可变。
	Add(def *ServiceDefinition) error

	// Build 验证依赖图（依赖缺失、循环、俘获依赖）并冻结注册集。
	// 必须在接受任何解析请求之前调用一次。
	Build() error

	// Get 解析请求类型的实例（使用默认名称）。
	Get(typ reflect.Type) (any, error)

	// GetNamed 解析请求类型和名称的实例。
	GetNamed(typ reflect.Type, name string) (any, error)

	// CreateScope 创建一个新作用域，持有独立的 Scoped 实例缓存。
	CreateScope() Scope

	// Close 释放所有已构造的单例（逆依赖顺序），幂等。
	// 进程关闭时由宿主调用一次。
	Close() error

	// definition 查找注册定义（内部，供作用域使用）。
	definition(key ServiceKey) (*ServiceDefinition, bool)

	// serviceCount 返回注册服务的总数（用于作用域缓存大小）。
	serviceCount() int
}

// container 是具体的实现。
type container struct {
	mu          sync.RWMutex
	definitions map[ServiceKey]*ServiceDefinition
	built       atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once

	// order 是 Build 产出的拓扑顺序（依赖在前），Close 时逆序释放
	order []ServiceKey

	countVal int

	// resolver 执行构造配方
	resolver *resolver
}

// NewContainer 创建一个新的空容器。
// 每个容器实例拥有独立的注册表和单例缓存，不存在环境全局容器，
// 测试中可以并行使用多个互不相干的容器。
func NewContainer() Container {
	return &container{
		definitions: make(map[ServiceKey]*ServiceDefinition),
		resolver:    newResolver(),
	}
}

// Add 向容器添加服务定义。
func (c *container) Add(def *ServiceDefinition) error {
	if c.built.Load() {
		return fmt.Errorf("di: Build 后无法注册服务")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := def.Key()
	if _, exists := c.definitions[key]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateRegistration, key)
	}

	c.definitions[key] = def
	return nil
}

// Build 验证依赖图并冻结注册集。
// 单例不在这里急切构造：首次解析时按需构造，并发首次解析
// 由每个定义上的 sync.Once 保证至多执行一次配方。
func (c *container) Build() error {
	if c.built.Load() {
		return nil // 已构建
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 双重检查
	if c.built.Load() {
		return nil
	}

	// 为定义分配 ID，作用域用它做 O(1) 数组索引
	c.countVal = 0
	for _, def := range c.definitions {
		def.ID = c.countVal
		c.countVal++
	}

	graph := newGraphBuilder(c.definitions)
	order, err := graph.validate()
	if err != nil {
		return err
	}
	c.order = order

	// 标记为已构建。此后 Add() 失败，定义实际上不可变，
	// 稳态解析路径可以无锁读取 definitions。
	c.built.Store(true)
	return nil
}

// Get 解析请求类型的实例。
func (c *container) Get(typ reflect.Type) (any, error) {
	return c.GetNamed(typ, "")
}

// GetNamed 解析请求类型和名称的实例。
// 根容器没有作用域缓存：解析 Scoped 服务必须通过 CreateScope()。
func (c *container) GetNamed(typ reflect.Type, name string) (any, error) {
	if !c.built.Load() {
		return nil, fmt.Errorf("di: 容器未构建")
	}
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: 根容器", ErrScopeClosed)
	}

	key := ServiceKey{Type: typ, Name: name}

	// Build 之后定义不可变，无锁读取。
	// built.Store/Load 提供了所需的内存屏障。
	def, ok := c.definitions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, key)
	}

	switch def.Lifetime {
	case Singleton:
		// 至多构造一次：并发的首次解析在 Once 上汇合，
		// 全部得到同一实例（或同一构造错误）。
		def.once.Do(func() {
			def.instance, def.err = c.resolver.createInstance(c, def)
		})
		return def.instance, def.err

	case Transient:
		return c.resolver.createInstance(c, def)

	case Scoped:
		return nil, fmt.Errorf("%w: 无法从根容器解析 Scoped 服务 %v，请使用 CreateScope()",
			ErrNoActiveScope, key)
	}

	return nil, fmt.Errorf("di: 未知生命周期 %v", def.Lifetime)
}

// CreateScope 创建一个新作用域。不改变容器级状态。
func (c *container) CreateScope() Scope {
	return newScope(c)
}

// Close 逆依赖顺序释放所有已构造的单例。
// 实现了 io.Closer 的实例会被关闭；重复调用是无操作。
func (c *container) Close() error {
	var errs []error

	c.closeOnce.Do(func() {
		c.closed.Store(true)

		if !c.built.Load() {
			return
		}

		// order 是依赖在前的拓扑顺序，逆序保证消费者先于依赖被释放
		for i := len(c.order) - 1; i >= 0; i-- {
			def := c.definitions[c.order[i]]
			if def.Lifetime != Singleton || def.IsValue {
				continue
			}
			if def.instance == nil {
				continue // 从未构造
			}
			if closer, ok := def.instance.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("di: 释放单例 %v 失败: %w", def.Key(), err))
				}
			}
		}
	})

	return errors.Join(errs...)
}

func (c *container) definition(key ServiceKey) (*ServiceDefinition, bool) {
	def, ok := c.definitions[key]
	return def, ok
}

func (c *container) serviceCount() int {
	return c.countVal
}
