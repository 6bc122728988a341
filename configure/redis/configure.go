package redis

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/redis/go-redis/v9"
)

// Configure 返回 Redis 配置器。
// 每个客户端以命名 Singleton 注册到容器，默认客户端同时以无名注册。
//
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		clients, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Redis 客户端构建失败",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if clients == nil {
			return
		}

		container := ctx.Container()
		di.Register[*Clients](container, di.WithValue(clients))

		for _, name := range clients.Names() {
			client, _ := clients.Get(name)
			di.Register[*redis.Client](container,
				di.WithValue(client),
				di.WithName(name),
			)
		}

		if client, err := clients.Get(DefaultClientName); err == nil {
			di.Register[*redis.Client](container, di.WithValue(client))
		}

		ctx.SetCleanup("redis", func() {
			ctx.GetLogger().Info("正在关闭 Redis 客户端")
			if err := clients.Close(); err != nil {
				ctx.GetLogger().Error("Redis 客户端关闭失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
