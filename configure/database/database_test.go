package database_test

import (
	"context"
	"io"
	"testing"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/configure/database"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

type repository struct {
	Master  *gorm.DB `di:"master"`
	Replica *gorm.DB `di:"replica,optional"`
}

// masterConfig 模拟用户定义的配置结构
type masterConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func quietBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder().
		ConfigureLogging(func(b *logging.Builder) {
			b.AddConsole(logging.ConsoleLoggerOptions{Output: io.Discard})
		})
}

func TestDatabaseConfiguration(t *testing.T) {
	builder := quietBuilder().
		ConfigureConfiguration(func(cb *config.Builder) {
			cb.AddInMemory(map[string]any{
				"db": map[string]any{
					"master": map[string]any{
						"dsn":            "file::memory:?cache=shared",
						"max_open_conns": 5,
					},
				},
			})
		}).
		Configure(database.Configure(func(b *database.Builder) {
			conf, err := config.Load[masterConfig](b.Configuration(), "db:master")
			if err != nil {
				t.Fatalf("加载数据库配置失败: %v", err)
			}

			b.Add("master", sqlite.Open(conf.DSN), func(o *database.Options) {
				o.MaxOpenConns = conf.MaxOpenConns
				o.AutoMigrate = []any{&User{}}
			})
		})).
		Configure(func(ctx *core.BuildContext) {
			di.Register[*repository](ctx.Container())
		})

	app := builder.Build()
	defer app.Stop(context.Background())

	var repo *repository
	app.GetService(&repo)

	if repo.Master == nil {
		t.Fatal("master 数据库不应为 nil")
	}
	if repo.Replica != nil {
		t.Error("replica 未配置，可选注入应保持 nil")
	}

	sqlDB, _ := repo.Master.DB()
	if got := sqlDB.Stats().MaxOpenConnections; got != 5 {
		t.Errorf("期望 MaxOpenConns 为 5，得到 %d", got)
	}

	if err := repo.Master.Create(&User{Name: "test"}).Error; err != nil {
		t.Fatalf("插入记录失败: %v", err)
	}
	var count int64
	if err := repo.Master.Model(&User{}).Count(&count).Error; err != nil {
		t.Fatalf("统计记录失败: %v", err)
	}
	if count != 1 {
		t.Errorf("期望 1 条记录，得到 %d", count)
	}
}

func TestDatabaseDefaultInstance(t *testing.T) {
	builder := quietBuilder().
		Configure(database.Configure(func(b *database.Builder) {
			b.AddDefault(sqlite.Open(":memory:"), nil)
		}))

	app := builder.Build()
	defer app.Stop(context.Background())

	db, err := di.Resolve[*gorm.DB](app.Services())
	if err != nil {
		t.Fatalf("默认实例应以无名方式注册: %v", err)
	}
	named, err := di.ResolveNamed[*gorm.DB](app.Services(), database.DefaultName)
	if err != nil {
		t.Fatalf("默认实例应同时以命名方式注册: %v", err)
	}
	if db != named {
		t.Error("无名与命名解析应返回同一实例")
	}
}

func TestDatabaseBuilderErrors(t *testing.T) {
	builder := database.NewBuilder()

	// 缺少 dialector
	builder.Add("invalid", nil, nil)

	// 重复名称
	builder.Add("dup", sqlite.Open(":memory:"), nil)
	builder.Add("dup", sqlite.Open(":memory:"), nil)

	if _, err := builder.Build(nil); err == nil {
		t.Fatal("期望构建返回错误，得到 nil")
	}
}
