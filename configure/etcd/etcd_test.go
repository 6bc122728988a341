package etcd_test

import (
	"context"
	"io"
	"testing"

	"github.com/gocrud/host/configure/etcd"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// registryConsumer 模拟依赖 etcd 客户端的服务
type registryConsumer struct {
	Master *clientv3.Client `di:"master"`
	Backup *clientv3.Client `di:"backup,optional"`
}

func quietBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder().
		ConfigureLogging(func(b *logging.Builder) {
			b.AddConsole(logging.ConsoleLoggerOptions{Output: io.Discard})
		})
}

func TestEtcdConfiguration(t *testing.T) {
	builder := quietBuilder().
		Configure(etcd.Configure(func(b *etcd.Builder) {
			b.AddClient("master", func(o *etcd.ClientOptions) {
				o.Endpoints = []string{"localhost:2379"}
			})
		})).
		Configure(func(ctx *core.BuildContext) {
			di.Register[*registryConsumer](ctx.Container())
		})

	app := builder.Build()
	defer app.Stop(context.Background())

	var svc *registryConsumer
	app.GetService(&svc)

	if svc.Master == nil {
		t.Error("master 客户端不应为 nil")
	}
	if svc.Backup != nil {
		t.Error("backup 未配置，可选注入应保持 nil")
	}

	master, err := di.ResolveNamed[*clientv3.Client](app.Services(), "master")
	if err != nil {
		t.Fatalf("解析命名客户端 'master' 失败: %v", err)
	}
	if master != svc.Master {
		t.Error("命名解析与注入应返回同一客户端实例")
	}
}

func TestEtcdBuilderErrors(t *testing.T) {
	builder := etcd.NewBuilder()

	// 必填项缺失
	builder.AddClient("invalid", func(o *etcd.ClientOptions) {
		o.Endpoints = nil
	})

	// 重复名称
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)

	if _, err := builder.Build(nil); err == nil {
		t.Fatal("期望无效配置返回错误，得到 nil")
	}
}

func TestEtcdClientsClose(t *testing.T) {
	builder := etcd.NewBuilder()
	builder.AddDefaultClient(nil)

	clients, err := builder.Build(nil)
	if err != nil {
		t.Fatalf("构建客户端失败: %v", err)
	}

	if _, err := clients.Get(etcd.DefaultClientName); err != nil {
		t.Fatalf("获取默认客户端失败: %v", err)
	}

	if err := clients.Close(); err != nil {
		t.Errorf("关闭客户端失败: %v", err)
	}
	if _, err := clients.Get(etcd.DefaultClientName); err == nil {
		t.Error("关闭后客户端应不可获取")
	}
}
