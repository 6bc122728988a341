package cron

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

func quietLogger() logging.Logger {
	factory := logging.NewBuilder().
		AddConsole(logging.ConsoleLoggerOptions{Output: io.Discard}).
		Build()
	return factory.CreateLogger("cron-test")
}

func TestCronJobRuns(t *testing.T) {
	var ticks atomic.Int32

	builder := NewBuilder().WithSeconds()
	builder.AddJob("* * * * * *", "tick", func() {
		ticks.Add(1)
	})

	svc, err := builder.build(di.NewContainer(), quietLogger())
	if err != nil {
		t.Fatalf("构建 cron 服务失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	deadline := time.After(3 * time.Second)
	for ticks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("定时任务 3 秒内未执行")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	<-done

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := svc.Stop(stopCtx); err != nil {
		t.Errorf("停止调度器失败: %v", err)
	}
}

func TestCronInvokeJobResolvesDependencies(t *testing.T) {
	type counter struct {
		calls atomic.Int32
	}

	container := di.NewContainer()
	di.Register[*counter](container)
	if err := container.Build(); err != nil {
		t.Fatalf("构建容器失败: %v", err)
	}

	builder := NewBuilder().WithSeconds()
	builder.AddInvokeJob("* * * * * *", "count", func(c *counter) {
		c.calls.Add(1)
	})

	svc, err := builder.build(container, quietLogger())
	if err != nil {
		t.Fatalf("构建 cron 服务失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	resolved, err := di.Resolve[*counter](container)
	if err != nil {
		t.Fatalf("解析计数器失败: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for resolved.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("DI 任务 3 秒内未执行")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestCronBuilderErrors(t *testing.T) {
	// 无效表达式
	builder := NewBuilder()
	builder.AddJob("not a spec", "bad", func() {})
	if _, err := builder.build(di.NewContainer(), quietLogger()); err == nil {
		t.Error("无效表达式应返回错误")
	}

	// 重复任务名
	builder = NewBuilder()
	builder.AddJob("@hourly", "dup", func() {})
	builder.AddJob("@hourly", "dup", func() {})
	if _, err := builder.build(di.NewContainer(), quietLogger()); err == nil {
		t.Error("重复任务名应返回错误")
	}

	// 无效时区
	builder = NewBuilder().WithLocation("Not/AZone")
	if _, err := builder.build(di.NewContainer(), quietLogger()); err == nil {
		t.Error("无效时区应返回错误")
	}
}
