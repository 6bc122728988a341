package web

import (
	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/di"
)

// scopeContextKey 请求作用域在 gin.Context 中的键
const scopeContextKey = "host:di:scope"

// ScopeFromContext 获取当前请求的 DI 作用域。
// 作用域由内置中间件创建，请求结束时自动关闭，
// handler 内缓存的引用不应该跨请求使用。
func ScopeFromContext(c *gin.Context) (di.Scope, bool) {
	value, exists := c.Get(scopeContextKey)
	if !exists {
		return nil, false
	}
	scope, ok := value.(di.Scope)
	return scope, ok
}

// Resolve 从当前请求的作用域解析类型 T 的服务。
// 没有活动作用域时返回 di.ErrNoActiveScope。
func Resolve[T any](c *gin.Context) (T, error) {
	scope, ok := ScopeFromContext(c)
	if !ok {
		var zero T
		return zero, di.ErrNoActiveScope
	}
	return di.Resolve[T](scope)
}
