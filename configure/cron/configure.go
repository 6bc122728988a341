package cron

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

// Configure 返回 Cron 配置器。
// 调度器注册为托管服务，随应用启动和停止。
//
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		svc, err := builder.build(ctx.Container(), ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Cron 服务构建失败",
				logging.Field{Key: "error", Value: err.Error()})
		}

		di.Register[*Service](ctx.Container(), di.WithValue(svc))
		ctx.AddHostedService(svc)
	}
}
