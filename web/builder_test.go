package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logging.Logger {
	return logging.NewBuilder().
		AddConsole(logging.ConsoleLoggerOptions{Output: io.Discard}).
		Build().
		CreateLogger("test")
}

// ---------------- Mock Controllers ----------------

type SimpleController struct{}

func (c *SimpleController) MountRoutes(router gin.IRouter) {
	router.GET("/simple", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "simple")
	})
}

type DepService struct {
	Value string
}

// 构造函数注入
type ControllerWithDep struct {
	Svc *DepService
}

func NewControllerWithDep(svc *DepService) *ControllerWithDep {
	return &ControllerWithDep{Svc: svc}
}

func (c *ControllerWithDep) MountRoutes(router gin.IRouter) {
	router.GET("/dep", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Svc.Value)
	})
}

// di 标签字段注入
type ControllerWithTag struct {
	Svc *DepService `di:""`
}

func (c *ControllerWithTag) MountRoutes(router gin.IRouter) {
	router.GET("/tag", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "tag:"+c.Svc.Value)
	})
}

// RequestTrace 作用域服务，请求内共享
type RequestTrace struct {
	hits int
}

func NewRequestTrace() *RequestTrace {
	return &RequestTrace{}
}

// ---------------- Tests ----------------

func TestBuilderAddControllers(t *testing.T) {
	container := di.NewContainer()
	di.Register[*DepService](container, di.WithFactory(func() *DepService {
		return &DepService{Value: "injected-value"}
	}))

	builder := NewBuilder(newTestLogger())
	builder.AddControllers(NewControllerWithDep)
	builder.AddControllers(&ControllerWithTag{})
	builder.AddControllers(&SimpleController{})

	require.NoError(t, builder.RegisterServices(container))
	host := builder.Build(container)

	require.NoError(t, container.Build())
	require.NoError(t, host.MapControllers())

	router := host.Engine()

	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest(http.MethodGet, "/simple", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "simple", w1.Body.String())

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodGet, "/dep", nil)
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "injected-value", w2.Body.String())

	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest(http.MethodGet, "/tag", nil)
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
	assert.Equal(t, "tag:injected-value", w3.Body.String())
}

func TestBuilderDuplicateControllerFails(t *testing.T) {
	container := di.NewContainer()
	builder := NewBuilder(newTestLogger())

	builder.AddControllers(NewControllerWithDep)
	builder.AddControllers(NewControllerWithDep)

	err := builder.RegisterServices(container)
	assert.ErrorIs(t, err, di.ErrDuplicateRegistration)
}

func TestRequestScopeMiddleware(t *testing.T) {
	container := di.NewContainer()
	di.Register[*RequestTrace](container, di.WithFactory(NewRequestTrace), di.WithScoped())

	builder := NewBuilder(newTestLogger())
	builder.Get("/trace", func(c *gin.Context) {
		// 同一请求内两次解析命中同一实例
		first, err := Resolve[*RequestTrace](c)
		require.NoError(t, err)
		first.hits++

		second, err := Resolve[*RequestTrace](c)
		require.NoError(t, err)
		second.hits++

		assert.Same(t, first, second)
		c.JSON(http.StatusOK, gin.H{"hits": first.hits})
	})

	host := builder.Build(container)
	require.NoError(t, container.Build())

	router := host.Engine()

	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest(http.MethodGet, "/trace", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.JSONEq(t, `{"hits": 2}`, w1.Body.String())

	// 新请求拿到新作用域，计数重新开始
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodGet, "/trace", nil)
	router.ServeHTTP(w2, req2)
	assert.JSONEq(t, `{"hits": 2}`, w2.Body.String())
}

func TestScopeClosedAfterRequest(t *testing.T) {
	container := di.NewContainer()
	di.Register[*RequestTrace](container, di.WithFactory(NewRequestTrace), di.WithScoped())

	var captured di.Scope
	builder := NewBuilder(newTestLogger())
	builder.Get("/capture", func(c *gin.Context) {
		scope, ok := ScopeFromContext(c)
		require.True(t, ok)
		captured = scope
		c.Status(http.StatusOK)
	})

	host := builder.Build(container)
	require.NoError(t, container.Build())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/capture", nil)
	host.Engine().ServeHTTP(w, req)

	require.NotNil(t, captured)
	assert.True(t, captured.Closed())

	_, err := di.Resolve[*RequestTrace](captured)
	assert.ErrorIs(t, err, di.ErrScopeClosed)
}
