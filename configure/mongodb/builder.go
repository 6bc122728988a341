package mongodb

import (
	"fmt"

	"github.com/gocrud/host/logging"
)

// DefaultClientName 未显式指定名称时使用的客户端名。
const DefaultClientName = "default"

// Builder MongoDB 配置构建器
type Builder struct {
	configs map[string]ClientOptions
	order   []string
	errors  []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]ClientOptions),
	}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// AddDefault 添加默认客户端配置
func (b *Builder) AddDefault(uri string, configure func(*ClientOptions)) *Builder {
	return b.Add(DefaultClientName, uri, configure)
}

// Build 建立所有客户端连接
func (b *Builder) Build(logger logging.Logger) (*Clients, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	clients := newClients()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := clients.register(opts); err != nil {
			return nil, err
		}

		if logger != nil {
			logger.Info("已注册 Mongo 客户端",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "uri", Value: opts.Uri})
		}
	}

	return clients, nil
}
