package hosting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gocrud/host/logging"
)

// HostedService 托管服务接口（类似于 .NET Core IHostedService）。
// 框架在独立 goroutine 中调用 Start，用户无需自己启动 goroutine。
type HostedService interface {
	// Start 阻塞运行，直到 context 取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行额外的清理工作。Start 的 context 取消时服务应已自行退出。
	Stop(ctx context.Context) error
}

// Manager 托管服务管理器，统一启动、停止和等待。
type Manager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewManager 创建托管服务管理器。
func NewManager(logger logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Add 添加托管服务。必须在 StartAll 之前调用。
func (m *Manager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// Count 返回已注册的托管服务数量。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 并发启动所有托管服务，每个服务一个 goroutine。
// 非取消类错误写入返回的通道，通道容量等于服务数量。
func (m *Manager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))
	m.logger.Info("启动托管服务", logging.Field{Key: "count", Value: len(m.services)})

	for i, service := range m.services {
		m.wg.Add(1)
		go func(index int, svc HostedService) {
			defer m.wg.Done()

			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Info("托管服务已完成", logging.Field{Key: "index", Value: index})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("托管服务已随上下文停止", logging.Field{Key: "index", Value: index})
			default:
				m.logger.Error("托管服务出错",
					logging.Field{Key: "index", Value: index},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- err
			}
		}(i, service)
	}

	return errCh
}

// StopAll 逆序并发停止所有托管服务，等待全部返回。
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("停止托管服务", logging.Field{Key: "count", Value: len(m.services)})

	var wg sync.WaitGroup
	for i := len(m.services) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(index int, svc HostedService) {
			defer wg.Done()
			if err := svc.Stop(ctx); err != nil {
				m.logger.Error("停止托管服务失败",
					logging.Field{Key: "index", Value: index},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}(i, m.services[i])
	}
	wg.Wait()

	return nil
}

// Wait 等待所有服务的 Start 返回。
func (m *Manager) Wait() {
	m.wg.Wait()
}

// BackgroundService 后台服务基类，封装停止信号和完成通知。
type BackgroundService struct {
	name   string
	logger logging.Logger
	stopCh chan struct{}
	doneCh chan struct{}
	done   sync.Once
}

// NewBackgroundService 创建后台服务。
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start 阻塞直到收到停止信号或上下文取消。
func (s *BackgroundService) Start(ctx context.Context) error {
	s.logger.Info("后台服务启动", logging.Field{Key: "name", Value: s.name})

	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}

	s.Done()
	return nil
}

// Stop 发出停止信号并等待服务退出或超时。
func (s *BackgroundService) Stop(ctx context.Context) error {
	close(s.stopCh)

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("后台服务停止超时", logging.Field{Key: "name", Value: s.name})
		return ctx.Err()
	}
}

// ShouldStop 检查是否收到停止信号。
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan 返回停止通道，用于在 select 中监听。
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成。幂等。
func (s *BackgroundService) Done() {
	s.done.Do(func() {
		close(s.doneCh)
	})
}

// TimedHostedService 按固定间隔执行任务的托管服务。
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务。
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 周期执行任务，任务出错记录日志后继续。
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	s.logger.Info("定时服务启动",
		logging.Field{Key: "name", Value: s.name},
		logging.Field{Key: "interval", Value: s.interval})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("定时任务执行失败",
					logging.Field{Key: "name", Value: s.name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
