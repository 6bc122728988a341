package di

import "reflect"

// Option 配置服务注册。
type Option func(*ServiceDefinition)

// WithLifetime 设置服务的生命周期。
func WithLifetime(lifetime Lifetime) Option {
	return func(d *ServiceDefinition) {
		d.Lifetime = lifetime
	}
}

// WithSingleton 将生命周期设置为 Singleton（默认）。
func WithSingleton() Option {
	return WithLifetime(Singleton)
}

// WithScoped 将生命周期设置为 Scoped。
func WithScoped() Option {
	return WithLifetime(Scoped)
}

// WithTransient 将生命周期设置为 Transient。
func WithTransient() Option {
	return WithLifetime(Transient)
}

// WithValue 注册一个预构建的实例。
// 实例已经创建完成，按原样使用，生命周期固定为 Singleton。
func WithValue(v any) Option {
	return func(d *ServiceDefinition) {
		d.Impl = v
		d.IsValue = true
		d.Lifetime = Singleton
	}
}

// WithFactory 注册一个工厂函数作为构造配方。
// 工厂函数的参数即声明的依赖，由容器解析后传入。
func WithFactory(fn any) Option {
	return func(d *ServiceDefinition) {
		d.Impl = fn
		d.IsFactory = true
	}
}

// WithName 设置服务的名称，用于命名注册与命名注入。
func WithName(name string) Option {
	return func(d *ServiceDefinition) {
		d.Name = name
	}
}

// Use 指定接口的实现类型（结构体注入模式）。
func Use[T any]() Option {
	return func(d *ServiceDefinition) {
		d.ImplType = reflect.TypeOf((*T)(nil)).Elem()
	}
}
