package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/hosting"
	"github.com/gocrud/host/logging"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Services() di.Container
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetService(ptr any)
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment          string
	configBuilder        *config.Builder
	loggingBuilder       *logging.Builder
	serviceConfigurators []func(*ServiceCollection)
	configurators        []Configurator
	shutdownTimeout      time.Duration
	mu                   sync.Mutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewBuilder(),
		loggingBuilder:  logging.NewBuilder(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.Builder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.Builder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// ConfigureServices 配置服务，组合根的注册阶段
func (b *ApplicationBuilder) ConfigureServices(configure func(*ServiceCollection)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.serviceConfigurators = append(b.serviceConfigurators, configure)
	}
	return b
}

// Configure 添加配置器
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configurators = append(b.configurators, configurators...)
	return b
}

// AddExtension 添加应用程序扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	validateExtension(ext)

	b.mu.Lock()
	defer b.mu.Unlock()

	if sc, ok := ext.(ServiceConfigurator); ok {
		b.serviceConfigurators = append(b.serviceConfigurators, sc.ConfigureServices)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.configurators = append(b.configurators, ac.ConfigureBuilder)
	}

	return b
}

// AddOptions 注册配置选项（语法糖）
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 添加一个函数式后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&functionalService{task: task})
	})
}

type functionalService struct {
	task func(ctx context.Context) error
}

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(ctx context.Context) error {
	return nil
}

// UseShutdownTimeout 设置优雅关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 构建应用程序。
// 依次：构建配置和日志，注册核心服务，执行配置器和服务配置器，
// 最后 container.Build() 做静态验证——注册图有问题时启动立即失败。
func (b *ApplicationBuilder) Build() Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	configuration, err := b.configBuilder.Build()
	if err != nil {
		panic(fmt.Sprintf("host: 构建配置失败: %v", err))
	}

	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")

	logger.Info("构建应用程序",
		logging.Field{Key: "environment", Value: b.environment})

	container := di.NewContainer()
	environment := NewEnvironment(b.environment)

	// 核心服务注册为预构建单例
	di.Register[config.Configuration](container, di.WithValue(configuration))
	di.Register[logging.LoggerFactory](container, di.WithValue(loggerFactory))
	di.Register[logging.Logger](container, di.WithValue(logger))
	di.Register[di.Container](container, di.WithValue(container))
	di.Register[Environment](container, di.WithValue(environment))

	services := &ServiceCollection{
		container: container,
		logger:    logger,
	}

	buildContext := &BuildContext{
		container:     container,
		configuration: configuration,
		logger:        logger,
		environment:   environment,
		cleanups:      make(map[string]func()),
	}

	for _, configurator := range b.configurators {
		configurator(buildContext)
	}
	for _, configurator := range b.serviceConfigurators {
		configurator(services)
	}

	if err := container.Build(); err != nil {
		logger.Fatal("构建 DI 容器失败",
			logging.Field{Key: "error", Value: err.Error()})
	}

	logger.Info("DI 容器构建完成",
		logging.Field{Key: "services", Value: di.Count(container)})

	// 托管服务有两个来源：BuildContext 直接添加的实例，
	// 和 ServiceCollection 注册到容器、构建后再解析的类型
	hostedServices := append([]hosting.HostedService(nil), buildContext.hostedServices...)
	for _, serviceType := range services.hostedServiceTypes {
		instance, err := container.Get(serviceType)
		if err != nil {
			logger.Fatal("从容器解析托管服务失败",
				logging.Field{Key: "type", Value: serviceType.String()},
				logging.Field{Key: "error", Value: err.Error()})
		}
		hs, ok := instance.(hosting.HostedService)
		if !ok {
			logger.Fatal("服务未实现 HostedService 接口",
				logging.Field{Key: "type", Value: serviceType.String()})
		}
		hostedServices = append(hostedServices, hs)
	}

	return &application{
		container:       container,
		configuration:   configuration,
		logger:          logger,
		loggerFactory:   loggerFactory,
		environment:     environment,
		hostedServices:  hostedServices,
		cleanups:        buildContext.cleanups,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}
}

type application struct {
	container       di.Container
	configuration   config.Configuration
	logger          logging.Logger
	loggerFactory   logging.LoggerFactory
	environment     Environment
	hostedServices  []hosting.HostedService
	serviceManager  *hosting.Manager
	cleanups        map[string]func()
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	running         bool
	runCancel       context.CancelFunc
	mu              sync.Mutex
}

// Run 运行应用程序（阻塞直到收到停止信号）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 运行应用程序，ctx 取消时触发优雅关闭
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("host: 应用程序已在运行")
	}
	a.running = true

	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.mu.Unlock()

	a.logger.Info("启动应用程序",
		logging.Field{Key: "environment", Value: a.environment.Name()})

	a.serviceManager = hosting.NewManager(a.logger)
	for _, service := range a.hostedServices {
		a.serviceManager.Add(service)
	}
	errCh := a.serviceManager.StartAll(runCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("收到退出信号", logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("应用程序收到停止请求")
	case <-ctx.Done():
		a.logger.Info("运行上下文已取消")
	case err := <-errCh:
		a.logger.Error("托管服务失败，开始停止应用程序",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	a.shutdown(cancel)

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	return runErr
}

// shutdown 优雅关闭：停止托管服务，执行清理函数，最后关闭容器释放单例。
func (a *application) shutdown(cancel context.CancelFunc) {
	a.logger.Info("关闭应用程序",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	cancel()

	shutdownCtx, cancelTimeout := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelTimeout()

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("停止托管服务失败",
			logging.Field{Key: "error", Value: err.Error()})
	}
	a.serviceManager.Wait()

	for key, cleanup := range a.cleanups {
		a.logger.Debug("执行清理", logging.Field{Key: "key", Value: key})
		cleanup()
	}

	if err := a.container.Close(); err != nil {
		a.logger.Error("关闭容器失败",
			logging.Field{Key: "error", Value: err.Error()})
	}

	a.logger.Info("应用程序已停止")
	a.loggerFactory.Close()
}

// Stop 请求停止应用程序。幂等。
func (a *application) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	return nil
}

func (a *application) Services() di.Container {
	return a.container
}

func (a *application) Configuration() config.Configuration {
	return a.configuration
}

func (a *application) Logger() logging.Logger {
	return a.logger
}

func (a *application) Environment() Environment {
	return a.environment
}

// GetService 获取服务实例（通过指针参数）
//
//	var myService *MyService
//	app.GetService(&myService)
func (a *application) GetService(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("host: GetService 参数必须是指针，得到 %T", ptr))
	}

	elemValue := ptrValue.Elem()
	if !elemValue.CanSet() {
		panic("host: GetService 参数必须可写")
	}

	instance, err := a.container.Get(elemValue.Type())
	if err != nil {
		panic(fmt.Sprintf("host: 获取服务 %s 失败: %v", elemValue.Type(), err))
	}
	elemValue.Set(reflect.ValueOf(instance))
}

// Environment 环境接口
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string {
	return e.name
}

func (e *environment) IsDevelopment() bool {
	return e.name == "development"
}

func (e *environment) IsProduction() bool {
	return e.name == "production"
}

func (e *environment) IsStaging() bool {
	return e.name == "staging"
}
