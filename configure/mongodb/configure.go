package mongodb

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/gocrud/mgo"
)

// Configure 返回 MongoDB 配置器。
// 每个客户端以命名 Singleton 注册到容器，默认客户端同时以无名注册。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		clients, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("MongoDB 客户端构建失败",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if clients == nil {
			return
		}

		container := ctx.Container()
		di.Register[*Clients](container, di.WithValue(clients))

		clients.Each(func(name string, client *mgo.Client) {
			di.Register[*mgo.Client](container,
				di.WithValue(client),
				di.WithName(name),
			)
			if name == DefaultClientName {
				di.Register[*mgo.Client](container, di.WithValue(client))
			}
		})

		ctx.SetCleanup("mongodb", func() {
			ctx.GetLogger().Info("正在断开 Mongo 客户端")
			if err := clients.Close(); err != nil {
				ctx.GetLogger().Error("Mongo 客户端断开失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
