// Package di 实现带生命周期作用域解析的服务注册表。
//
// 注册表把抽象的服务键映射到构造配方和生命周期策略
// （Singleton / Scoped / Transient），按需解析实例：
//
//	container := di.NewContainer()
//	di.Register[CityCatalog](container, di.WithFactory(NewCityCatalog), di.WithTransient())
//	if err := container.Build(); err != nil { ... }
//
//	catalog, err := di.Resolve[CityCatalog](container)
//
// 组合根在启动时完成全部注册并调用一次 Build()，之后注册集不可变。
// 配方需要的依赖全部显式声明（工厂参数或 di 标签字段），由注册表
// 解析后传入，不提供任何环境式的 Service Locator 查找。
package di

import (
	"fmt"
	"reflect"
)

// Provide 智能注册服务，自动推断服务类型和注册方式。
//
// 支持的 target 类型:
//  1. func(...) (Service, error?) — 注册为工厂，服务类型为第一个返回值
//  2. *Struct                     — 注册为预构建实例（Singleton）
//  3. reflect.Type                — 注册为结构体注入模式
func Provide(c Container, target any, opts ...Option) (reflect.Type, error) {
	var def *ServiceDefinition
	var serviceType reflect.Type

	if typeVal, ok := target.(reflect.Type); ok {
		serviceType = typeVal
		def = &ServiceDefinition{
			Type:     serviceType,
			Lifetime: Singleton,
			ImplType: serviceType,
		}
	} else {
		targetVal := reflect.ValueOf(target)
		switch targetVal.Kind() {
		case reflect.Func:
			fnType := targetVal.Type()
			if fnType.NumOut() == 0 {
				return nil, fmt.Errorf("di: 构造函数必须至少有一个返回值")
			}
			// 服务类型为第一个返回值
			serviceType = fnType.Out(0)
			def = &ServiceDefinition{
				Type:      serviceType,
				Lifetime:  Singleton,
				Impl:      target,
				IsFactory: true,
			}

		case reflect.Ptr:
			serviceType = targetVal.Type()
			def = &ServiceDefinition{
				Type:     serviceType,
				Lifetime: Singleton,
				Impl:     target,
				IsValue:  true,
			}

		default:
			return nil, fmt.Errorf("di: 不支持的注册目标类型: %T", target)
		}
	}

	for _, opt := range opts {
		opt(def)
	}

	if err := c.Add(def); err != nil {
		return nil, err
	}
	return serviceType, nil
}

// Register 注册类型 T 的服务。
// T 为接口时用 di.Use[Impl]() 指定实现，或用 WithFactory/WithValue 提供配方。
// 注册发生在组合根，失败属于编程错误，直接 panic。
func Register[T any](c Container, opts ...Option) {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	def := &ServiceDefinition{
		Type:     typ,
		Lifetime: Singleton, // 默认
		ImplType: typ,
	}
	for _, opt := range opts {
		opt(def)
	}

	if err := c.Add(def); err != nil {
		panic(fmt.Sprintf("di: 注册 %v 失败: %v", typ, err))
	}
}

// Resolve 从容器或作用域解析类型 T 的实例。
func Resolve[T any](c Container) (T, error) {
	return ResolveNamed[T](c, "")
}

// ResolveNamed 从容器或作用域解析指定名称的 T 实例。
func ResolveNamed[T any](c Container, name string) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()

	val, err := c.GetNamed(typ, name)
	if err != nil {
		return zero, err
	}

	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("di: 解析得到 %T，期望 %v", val, typ)
	}
	return v, nil
}

// Invoke 调用函数并注入其参数。
// 函数最后一个返回值若为 error 则透传给调用方。
func Invoke(c Container, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("di: Invoke 期望函数，得到 %T", fn)
	}

	args := make([]reflect.Value, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		val, err := c.Get(fnType.In(i))
		if err != nil {
			return fmt.Errorf("di: 解析参数 %d 失败: %w", i, err)
		}
		args[i] = reflect.ValueOf(val)
	}

	results := fnVal.Call(args)
	if len(results) > 0 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）。
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Count 返回容器中注册的服务数量。
func Count(c Container) int {
	return c.serviceCount()
}
