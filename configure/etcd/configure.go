package etcd

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Configure 返回 etcd 配置器。
// 每个客户端以命名 Singleton 注册到容器，默认客户端同时以无名注册。
//
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		clients, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("etcd 客户端构建失败",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if clients == nil {
			return
		}

		container := ctx.Container()
		di.Register[*Clients](container, di.WithValue(clients))

		clients.Each(func(name string, client *clientv3.Client) {
			di.Register[*clientv3.Client](container,
				di.WithValue(client),
				di.WithName(name),
			)
			if name == DefaultClientName {
				di.Register[*clientv3.Client](container, di.WithValue(client))
			}
		})

		ctx.SetCleanup("etcd", func() {
			ctx.GetLogger().Info("正在关闭 etcd 客户端")
			if err := clients.Close(); err != nil {
				ctx.GetLogger().Error("etcd 客户端关闭失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
