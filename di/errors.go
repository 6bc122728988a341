package di

import "errors"

// 错误分两类：注册图错误在 Build 时静态检出（fail fast），
// 解析错误在 Get 时返回给直接调用方。容器从不自动重试失败的构造。
var (
	// ErrNotRegistered 请求的服务没有任何注册。
	ErrNotRegistered = errors.New("di: 服务未注册")

	// ErrDuplicateRegistration 同一个 ServiceKey 注册了两次。
	ErrDuplicateRegistration = errors.New("di: 服务已注册")

	// ErrMissingDependency 配方声明的依赖没有对应注册。
	ErrMissingDependency = errors.New("di: 依赖未注册")

	// ErrCircularDependency 依赖图存在环。
	ErrCircularDependency = errors.New("di: 检测到循环依赖")

	// ErrCaptiveDependency 单例（传递地）依赖了更窄生命周期的服务。
	// 更宽生命周期的消费者会把更窄生命周期的实例留存超出其作用域。
	ErrCaptiveDependency = errors.New("di: 俘获依赖")

	// ErrNoActiveScope 在没有活动作用域的情况下解析 Scoped 服务。
	ErrNoActiveScope = errors.New("di: 没有活动作用域")

	// ErrScopeClosed 作用域已关闭，不再接受解析请求。
	ErrScopeClosed = errors.New("di: 作用域已关闭")

	// ErrConstruction 配方执行失败，包装底层原因。
	ErrConstruction = errors.New("di: 构造失败")
)
