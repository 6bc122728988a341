package redis

import (
	"fmt"

	"github.com/gocrud/host/logging"
)

// DefaultClientName 未显式指定名称时使用的客户端名。
const DefaultClientName = "default"

// Builder Redis 客户端配置构建器
type Builder struct {
	configs []ClientOptions
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make([]ClientOptions, 0),
	}
}

// AddClient 添加一个命名的 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		panic(fmt.Sprintf("host: invalid redis configuration for '%s': %v", name, err))
	}

	b.configs = append(b.configs, *opts)
	return b
}

// AddDefaultClient 添加默认客户端配置
func (b *Builder) AddDefaultClient(configure func(*ClientOptions)) *Builder {
	return b.AddClient(DefaultClientName, configure)
}

// Build 根据配置建立所有客户端
func (b *Builder) Build(logger logging.Logger) (*Clients, error) {
	if len(b.configs) == 0 {
		return nil, nil
	}

	clients := newClients()
	for _, opts := range b.configs {
		if _, err := clients.register(opts); err != nil {
			return nil, fmt.Errorf("register redis client '%s': %w", opts.Name, err)
		}

		logger.Info("已注册 Redis 客户端",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}

	return clients, nil
}
