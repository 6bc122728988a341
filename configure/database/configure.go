package database

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"gorm.io/gorm"
)

// Configure 返回数据库配置器。
// 每个实例以命名 Singleton 注册到容器，默认实例同时以无名注册。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		builder.configuration = ctx.GetConfiguration()
		if options != nil {
			options(builder)
		}

		dbs, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("数据库构建失败",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if dbs == nil {
			return
		}

		container := ctx.Container()
		di.Register[*Databases](container, di.WithValue(dbs))

		dbs.Each(func(name string, db *gorm.DB) {
			di.Register[*gorm.DB](container,
				di.WithValue(db),
				di.WithName(name),
			)
			if name == DefaultName {
				di.Register[*gorm.DB](container, di.WithValue(db))
			}
		})

		ctx.SetCleanup("database", func() {
			ctx.GetLogger().Info("正在关闭数据库连接")
			if err := dbs.Close(); err != nil {
				ctx.GetLogger().Error("数据库关闭失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
