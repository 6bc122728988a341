package web

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

// Configure 返回 Web 配置器，把 Web 主机接入应用生命周期。
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger())
		if options != nil {
			options(builder)
		}

		if err := builder.RegisterServices(ctx.Container()); err != nil {
			ctx.GetLogger().Fatal("注册 Web 控制器失败",
				logging.Field{Key: "error", Value: err.Error()})
		}

		host := builder.Build(ctx.Container())
		di.Register[*Host](ctx.Container(), di.WithValue(host))
		ctx.AddHostedService(host)

		ctx.GetLogger().Info("Web 主机已配置",
			logging.Field{Key: "port", Value: host.port})
	}
}
