package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Lifetime 定义服务实例的生命周期宽度。
// 宽度全序：Singleton > Scoped > Transient。
type Lifetime int

const (
	// Singleton 每个容器只构造一次，所有解析返回同一实例。
	Singleton Lifetime = iota
	// Scoped 每个作用域内只构造一次，不同作用域相互隔离。
	Scoped
	// Transient 每次解析都构造新实例，永不缓存。
	Transient
)

// String 返回生命周期的字符串表示。
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// ServiceKey 是注册表的唯一键：服务类型加可选名称。
// 命名注册用于区分同一类型的多个服务（例如多个数据库连接）。
type ServiceKey struct {
	Type reflect.Type
	Name string
}

// String 返回键的可读表示。
func (k ServiceKey) String() string {
	if k.Name == "" {
		return fmt.Sprintf("%v", k.Type)
	}
	return fmt.Sprintf("%v (name=%s)", k.Type, k.Name)
}

// fieldInjection 包含需要注入的结构体字段的元数据。
type fieldInjection struct {
	Index       int
	Name        string // 字段名
	Type        reflect.Type
	Optional    bool
	ServiceName string // 命名注入的服务名称
}

// injectionSchema 包含 Build 时预计算的注入元数据。
// Build 之后只读，解析路径上不再做反射分析。
type injectionSchema struct {
	Fields []fieldInjection // 结构体字段注入
	Args   []ServiceKey     // 工厂/构造函数参数
}

// ServiceDefinition 是一条注册：ServiceKey 绑定到构造配方和生命周期。
// 容器 Build 之后定义不可变。
type ServiceDefinition struct {
	ID       int
	Type     reflect.Type
	Name     string
	Lifetime Lifetime

	ImplType  reflect.Type // 结构体注入的实现类型
	Impl      any          // 工厂函数或预构建实例
	IsFactory bool
	IsValue   bool

	schema *injectionSchema
	invoke invoker // Build 时为工厂配方预编译的调用器

	// Singleton 状态：至多构造一次
	once     sync.Once
	instance any
	err      error
}

// Key 返回此定义的 ServiceKey。
func (d *ServiceDefinition) Key() ServiceKey {
	return ServiceKey{Type: d.Type, Name: d.Name}
}
