package cron

import (
	"fmt"
	"time"

	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/robfig/cron/v3"
)

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any // func() 或参数由容器解析的任意函数
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{
		location: "UTC",
		jobs:     make([]jobDefinition, 0),
	}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置调度时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加简单任务
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddInvokeJob 添加依赖注入任务。
// handler 的参数在每次执行时由容器解析。
//
// 示例：
//
//	builder.AddInvokeJob("0 */5 * * * *", "sync-data", func(svc *DataService, logger logging.Logger) {
//	    svc.Sync()
//	})
func (b *Builder) AddInvokeJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// build 构建托管服务，DI 任务绑定到给定容器。
func (b *Builder) build(container di.Container, logger logging.Logger) (*Service, error) {
	var cronOpts []cron.Option

	if b.enableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}
	if b.enableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	if b.location != "" {
		loc, err := time.LoadLocation(b.location)
		if err != nil {
			return nil, fmt.Errorf("invalid cron location '%s': %w", b.location, err)
		}
		cronOpts = append(cronOpts, cron.WithLocation(loc))
	}

	svc := newService(logger, cronOpts...)

	for _, job := range b.jobs {
		var fn func()

		switch handler := job.handler.(type) {
		case func():
			fn = handler
		default:
			// 参数在执行时从容器解析
			h := handler
			name := job.name
			fn = func() {
				if err := di.Invoke(container, h); err != nil {
					logger.Error("定时任务执行失败",
						logging.Field{Key: "job", Value: name},
						logging.Field{Key: "error", Value: err.Error()})
				}
			}
		}

		if err := svc.addJob(job.spec, job.name, fn); err != nil {
			return nil, err
		}
	}

	return svc, nil
}
