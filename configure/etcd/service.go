package etcd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// ClientOptions etcd 客户端配置选项
type ClientOptions struct {
	Name               string        // 客户端名称
	Endpoints          []string      // etcd 服务器地址列表
	DialTimeout        time.Duration // 连接超时时间
	Username           string        // 用户名（可选）
	Password           string        // 密码（可选）
	AutoSyncInterval   time.Duration // 自动同步间隔（可选）
	MaxCallSendMsgSize int           // 最大发送消息大小（可选）
	MaxCallRecvMsgSize int           // 最大接收消息大小（可选）
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("etcd client name is required")
	}
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	return nil
}

// Clients 按名称管理多个 etcd 客户端。
// clientv3.New 不会阻塞等待连接建立，gRPC 连接按需建立。
type Clients struct {
	clients map[string]*clientv3.Client
	mu      sync.RWMutex
}

func newClients() *Clients {
	return &Clients{
		clients: make(map[string]*clientv3.Client),
	}
}

func (c *Clients) register(opts ClientOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.clients[opts.Name]; exists {
		return fmt.Errorf("etcd client '%s' already registered", opts.Name)
	}

	config := clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
	}
	if opts.Username != "" {
		config.Username = opts.Username
		config.Password = opts.Password
	}
	if opts.AutoSyncInterval > 0 {
		config.AutoSyncInterval = opts.AutoSyncInterval
	}
	if opts.MaxCallSendMsgSize > 0 {
		config.MaxCallSendMsgSize = opts.MaxCallSendMsgSize
	}
	if opts.MaxCallRecvMsgSize > 0 {
		config.MaxCallRecvMsgSize = opts.MaxCallRecvMsgSize
	}

	client, err := clientv3.New(config)
	if err != nil {
		return fmt.Errorf("create etcd client '%s': %w", opts.Name, err)
	}

	c.clients[opts.Name] = client
	return nil
}

// Get 获取指定名称的客户端
func (c *Clients) Get(name string) (*clientv3.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, exists := c.clients[name]
	if !exists {
		return nil, fmt.Errorf("etcd client '%s' not found", name)
	}
	return client, nil
}

// Each 遍历所有客户端
func (c *Clients) Each(fn func(name string, client *clientv3.Client)) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, client := range c.clients {
		fn(name, client)
	}
}

// Close 关闭所有 etcd 客户端
func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close etcd client '%s': %w", name, err))
		}
	}
	c.clients = make(map[string]*clientv3.Client)

	return errors.Join(errs...)
}
