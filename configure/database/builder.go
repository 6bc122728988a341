package database

import (
	"fmt"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/logging"
	"gorm.io/gorm"
)

// DefaultName 未显式指定名称时使用的实例名。
const DefaultName = "default"

// Builder 数据库配置构建器
type Builder struct {
	configs       map[string]Options
	order         []string
	configuration config.Configuration
	errors        []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]Options),
	}
}

// Configuration 返回应用配置，仅在通过 Configure 使用时可用。
// 可配合 config.Load 从配置节加载强类型数据库选项。
func (b *Builder) Configuration() config.Configuration {
	return b.configuration
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// AddDefault 添加默认实例配置
func (b *Builder) AddDefault(dialector gorm.Dialector, configure func(*Options)) *Builder {
	return b.Add(DefaultName, dialector, configure)
}

// Build 打开所有配置的数据库连接
func (b *Builder) Build(logger logging.Logger) (*Databases, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	dbs := newDatabases()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := dbs.register(opts); err != nil {
			return nil, err
		}

		if logger != nil {
			logger.Info("已注册数据库",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "dialector", Value: opts.Dialector.Name()})
		}
	}

	return dbs, nil
}
