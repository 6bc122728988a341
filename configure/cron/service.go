package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/host/logging"
	"github.com/robfig/cron/v3"
)

// Service Cron 定时任务托管服务。
type Service struct {
	cron   *cron.Cron
	logger logging.Logger
	mu     sync.RWMutex
	jobs   map[string]cron.EntryID // 任务名称到调度条目的映射
}

func newService(logger logging.Logger, opts ...cron.Option) *Service {
	cronOpts := append([]cron.Option{
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}, opts...)

	return &Service{
		cron:   cron.New(cronOpts...),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

// addJob 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "0 0 2 * * *" (每天凌晨2点)
func (s *Service) addJob(spec, name string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron job '%s' already registered", name)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("定时任务开始", logging.Field{Key: "job", Value: name})
		defer s.logger.Debug("定时任务完成", logging.Field{Key: "job", Value: name})
		job()
	})
	if err != nil {
		return fmt.Errorf("add cron job '%s': %w", name, err)
	}

	s.jobs[name] = entryID
	return nil
}

// RemoveJob 移除定时任务
func (s *Service) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("定时任务已移除", logging.Field{Key: "job", Value: name})
	}
}

// JobNames 返回已注册的任务名称
func (s *Service) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start 启动调度器并阻塞到 context 取消。
func (s *Service) Start(ctx context.Context) error {
	s.mu.RLock()
	count := len(s.jobs)
	s.mu.RUnlock()

	s.logger.Info("Cron 调度器启动", logging.Field{Key: "jobs", Value: count})
	s.cron.Start()

	<-ctx.Done()
	return nil
}

// Stop 优雅停止调度器，等待正在运行的任务完成。
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Cron 调度器停止")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn("等待定时任务完成超时")
		return ctx.Err()
	}
}

// cronLogger 将框架日志接口适配到 cron 的日志接口。
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{
			Key:   fmt.Sprintf("%v", keysAndValues[i]),
			Value: keysAndValues[i+1],
		})
	}
	return fields
}
