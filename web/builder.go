package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

// Controller 控制器接口
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger          logging.Logger
	port            int
	engine          *gin.Engine
	controllerCtors []any
	controllerTypes []reflect.Type

	// Build 时填入，请求作用域中间件延迟读取
	container di.Container
}

// NewBuilder 创建 Web 构建器。
// 默认发布模式，内置 panic 恢复和请求作用域中间件。
func NewBuilder(logger logging.Logger) *Builder {
	gin.SetMode(gin.ReleaseMode)

	b := &Builder{
		logger: logger,
		port:   8080,
		engine: gin.New(),
	}
	b.engine.Use(gin.Recovery())
	// 每个请求一个 DI 作用域，请求结束时关闭
	b.engine.Use(func(c *gin.Context) {
		if b.container == nil {
			c.Next()
			return
		}
		scope := b.container.CreateScope()
		defer scope.Close()

		c.Set(scopeContextKey, scope)
		c.Next()
	})

	return b
}

// UsePort 设置监听端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器。
// 参数可以是构造函数（构造函数注入）或实例指针（di 标签字段注入）。
// 控制器默认按 Transient 注册，可以自由依赖任何生命周期的服务。
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllerCtors = append(b.controllerCtors, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Patch 注册 PATCH 路由
func (b *Builder) Patch(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PATCH(path, handlers...)
	return b
}

// Any 注册任意方法路由
func (b *Builder) Any(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.Any(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// StaticFile 服务单个静态文件
func (b *Builder) StaticFile(relativePath, filepath string) *Builder {
	b.engine.StaticFile(relativePath, filepath)
	return b
}

// LoadHTMLGlob 加载 HTML 模板（通配符）
func (b *Builder) LoadHTMLGlob(pattern string) *Builder {
	b.engine.LoadHTMLGlob(pattern)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// NoMethod 处理 405
func (b *Builder) NoMethod(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoMethod(handlers...)
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RegisterServices 把控制器注册到 DI 容器，必须在容器 Build 之前调用。
// 控制器默认 Transient：指针实例只作为原型，按类型注册后每次解析新建并注入字段。
func (b *Builder) RegisterServices(container di.Container) error {
	for _, item := range b.controllerCtors {
		target := item
		if v := reflect.ValueOf(item); v.Kind() == reflect.Pointer {
			target = v.Type()
		}

		serviceType, err := di.Provide(container, target, di.WithTransient())
		if err != nil {
			return fmt.Errorf("web: 注册控制器 %T 失败: %w", item, err)
		}
		b.controllerTypes = append(b.controllerTypes, serviceType)
	}
	return nil
}

// Build 构建 Web 主机。container 用于请求作用域和控制器解析。
func (b *Builder) Build(container di.Container) *Host {
	b.container = container
	return &Host{
		port:            b.port,
		engine:          b.engine,
		container:       container,
		controllerTypes: b.controllerTypes,
		server: &http.Server{
			Handler: b.engine,
		},
		logger: b.logger,
	}
}

// Host Web 主机，作为托管服务随应用启停。
type Host struct {
	port            int
	engine          *gin.Engine
	server          *http.Server
	logger          logging.Logger
	container       di.Container
	controllerTypes []reflect.Type
}

// Address 获取实际监听地址（例如 "[::]:50234"）。仅在 Start 后有效。
func (h *Host) Address() string {
	return h.server.Addr
}

// Engine 获取 Gin 引擎，便于 httptest 直接调用。
func (h *Host) Engine() *gin.Engine {
	return h.engine
}

// Start 启动 Web 主机。阻塞直到 Stop 或发生错误，
// 框架在独立 goroutine 中调用。
func (h *Host) Start(ctx context.Context) error {
	// 容器构建完成后才解析控制器
	if err := h.MapControllers(); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: 监听 %s 失败: %w", addr, err)
	}
	h.server.Addr = ln.Addr().String()

	if h.logger != nil {
		h.logger.Info("Web 主机已启动",
			logging.Field{Key: "address", Value: h.server.Addr})
	}

	if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅停止 Web 主机，等待在途请求完成或超时。
func (h *Host) Stop(ctx context.Context) error {
	if h.logger != nil {
		h.logger.Info("停止 Web 主机")
	}
	return h.server.Shutdown(ctx)
}

// MapControllers 从容器解析控制器并挂载路由。
func (h *Host) MapControllers() error {
	for _, typ := range h.controllerTypes {
		instance, err := h.container.Get(typ)
		if err != nil {
			return fmt.Errorf("web: 解析控制器 %v 失败: %w", typ, err)
		}

		ctrl, ok := instance.(Controller)
		if !ok {
			return fmt.Errorf("web: %v 未实现 web.Controller 接口", typ)
		}

		ctrl.MountRoutes(h.engine)
		if h.logger != nil {
			h.logger.Debug("已挂载控制器路由",
				logging.Field{Key: "controller", Value: typ.String()})
		}
	}
	return nil
}
