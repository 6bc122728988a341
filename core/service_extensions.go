package core

import (
	"reflect"

	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

// ServiceCollection 服务集合，ConfigureServices 阶段的注册入口。
type ServiceCollection struct {
	container          di.Container
	logger             logging.Logger
	hostedServiceTypes []reflect.Type
}

// Container 返回底层的 DI 容器。
func (s *ServiceCollection) Container() di.Container {
	return s.container
}

// AddSingleton 注册类型 T 的单例服务。
// impl 可以是构造函数或预构建实例。
//
//	core.AddSingleton[IService](services, NewServiceImpl)
func AddSingleton[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.container, implOptions(impl, di.Singleton)...)
}

// AddScoped 注册类型 T 的作用域服务，impl 必须是构造函数。
//
//	core.AddScoped[IRequestContext](services, NewRequestContext)
func AddScoped[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.container, implOptions(impl, di.Scoped)...)
}

// AddTransient 注册类型 T 的瞬态服务，impl 必须是构造函数。
//
//	core.AddTransient[IWorker](services, NewWorker)
func AddTransient[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.container, implOptions(impl, di.Transient)...)
}

// AddNamed 注册类型 T 的命名服务。
func AddNamed[T any](s *ServiceCollection, name string, impl any, lifetime di.Lifetime) {
	opts := append(implOptions(impl, lifetime), di.WithName(name))
	di.Register[T](s.container, opts...)
}

// AddHostedService 注册托管服务：类型 T 注册为单例，
// 容器构建后解析并交给托管服务管理器启停。
//
//	core.AddHostedService[*Worker](services, NewWorker)
func AddHostedService[T any](s *ServiceCollection, ctor any) {
	AddSingleton[T](s, ctor)
	s.hostedServiceTypes = append(s.hostedServiceTypes, di.TypeOf[T]())
}

// implOptions 构造函数走工厂注册，其余按预构建实例处理。
// 预构建实例的生命周期固定为 Singleton。
func implOptions(impl any, lifetime di.Lifetime) []di.Option {
	if impl != nil && reflect.TypeOf(impl).Kind() == reflect.Func {
		return []di.Option{di.WithFactory(impl), di.WithLifetime(lifetime)}
	}
	return []di.Option{di.WithValue(impl)}
}
