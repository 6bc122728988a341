package core

import "fmt"

// Extension 应用程序扩展的基础接口。
// 扩展模块实现 ServiceConfigurator 或 AppConfigurator（或两者）。
type Extension interface {
	// Name 返回扩展名称，用于日志和调试
	Name() string
}

// ServiceConfigurator 负责注册依赖注入服务，
// 对应应用程序启动的 ConfigureServices 阶段。
type ServiceConfigurator interface {
	ConfigureServices(services *ServiceCollection)
}

// AppConfigurator 负责配置应用程序构建上下文，
// 对应 Configure 阶段，用于设置 Options、HostedService 等。
type AppConfigurator interface {
	ConfigureBuilder(ctx *BuildContext)
}

// validateExtension 未实现任何支持接口的扩展直接 panic。
func validateExtension(ext Extension) {
	_, isServiceConfigurator := ext.(ServiceConfigurator)
	_, isAppConfigurator := ext.(AppConfigurator)

	if !isServiceConfigurator && !isAppConfigurator {
		panic(fmt.Sprintf("host: Extension '%s' does not implement any supported interfaces (ServiceConfigurator, AppConfigurator). \n"+
			"Check if your method signatures exactly match the interface definitions.", ext.Name()))
	}
}
