package core

import (
	"reflect"
	"sync"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/hosting"
	"github.com/gocrud/host/logging"
)

// Configurator 配置器函数类型。
// 配置器用于扩展应用程序：注册服务、添加托管服务、注册清理函数等。
type Configurator func(*BuildContext)

// BuildContext 构建上下文，提供给配置器的核心组件入口。
type BuildContext struct {
	container     di.Container
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	hostedServices []hosting.HostedService
	cleanups       map[string]func()
	mu             sync.Mutex
}

// AddHostedService 添加托管服务实例
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// SetCleanup 注册资源清理函数，应用关闭时执行。同名覆盖。
func (c *BuildContext) SetCleanup(key string, cleanup func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups[key] = cleanup
}

// Container 返回底层的 DI 容器。
// 可直接使用 di.Register[T](ctx.Container(), ...) 注册服务。
func (c *BuildContext) Container() di.Container {
	return c.container
}

// ResolveService 从容器中解析服务。仅在必要时使用，容器构建前不可用。
func (c *BuildContext) ResolveService(serviceType reflect.Type) (any, error) {
	return c.container.Get(serviceType)
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// GetConfiguration 获取配置对象
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境信息
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// ConfigureOptions 注册配置节的选项模式服务：
//   - Option[T]          Singleton，应用生命周期内不变
//   - OptionSnapshot[T]  Scoped，每个作用域一份快照
//
// 使用示例: core.ConfigureOptions[AppSetting](ctx, "app")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	cache := config.NewOptionsCache[T](ctx.configuration, section)

	di.Register[config.Option[T]](ctx.container,
		di.WithValue(config.NewOption(cache.Get())),
	)

	di.Register[config.OptionSnapshot[T]](ctx.container,
		di.WithFactory(func() config.OptionSnapshot[T] {
			return config.NewOptionSnapshot(cache.Snapshot())
		}),
		di.WithScoped(),
	)

	ctx.logger.Info("已注册配置选项",
		logging.Field{Key: "type", Value: di.TypeOf[T]().String()},
		logging.Field{Key: "section", Value: section})
}
