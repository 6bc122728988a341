package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Option 静态配置选项（应用生命周期内不变）。
// 注册为 Singleton，在容器 Build 后首次解析时绑定一次。
type Option[T any] interface {
	Value() T
}

// OptionSnapshot 快照配置选项（作用域内不变）。
// 注册为 Scoped，每个作用域首次解析时取一份独立快照。
type OptionSnapshot[T any] interface {
	Value() T
}

// OptionsCache 持有某个配置节绑定后的值，并提供深拷贝快照。
type OptionsCache[T any] struct {
	config  Configuration
	section string
	current T
	mu      sync.RWMutex
}

// NewOptionsCache 创建配置缓存，立即做一次绑定。
// 配置节不存在时使用 T 的零值。
func NewOptionsCache[T any](config Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{
		config:  config,
		section: section,
	}
	if err := cache.reload(); err != nil {
		var zero T
		cache.current = zero
	}
	return cache
}

func (c *OptionsCache[T]) reload() error {
	var newValue T
	if err := c.config.Bind(c.section, &newValue); err != nil {
		return fmt.Errorf("config: 绑定配置节 %s 失败: %w", c.section, err)
	}

	c.mu.Lock()
	c.current = newValue
	c.mu.Unlock()
	return nil
}

// Get 获取当前值。
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Snapshot 返回当前值的深拷贝，调用方修改快照不影响缓存。
func (c *OptionsCache[T]) Snapshot() T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := json.Marshal(c.current)
	if err != nil {
		// 序列化失败说明是简单类型或含不可序列化字段，直接按值返回
		return c.current
	}

	var snapshot T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return c.current
	}
	return snapshot
}

type option[T any] struct {
	value T
}

func (o *option[T]) Value() T {
	return o.value
}

// NewOption 创建静态配置选项。
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

type optionSnapshot[T any] struct {
	snapshot T
}

func (o *optionSnapshot[T]) Value() T {
	return o.snapshot
}

// NewOptionSnapshot 创建快照配置选项。
func NewOptionSnapshot[T any](snapshot T) OptionSnapshot[T] {
	return &optionSnapshot[T]{snapshot: snapshot}
}
