package redis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions Redis 客户端配置选项
type ClientOptions struct {
	Name         string        // 客户端名称
	Addr         string        // Redis 服务器地址 (host:port)
	Password     string        // 密码（可选）
	DB           int           // 数据库编号
	DialTimeout  time.Duration // 连接超时时间
	ReadTimeout  time.Duration // 读取超时时间
	WriteTimeout time.Duration // 写入超时时间
	PoolSize     int           // 连接池大小
	MinIdleConns int           // 最小空闲连接数
	MaxRetries   int           // 最大重试次数
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("redis client name is required")
	}
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout must be positive")
	}
	return nil
}

// Clients 按名称管理多个 Redis 客户端。
// 客户端惰性建连，首个命令执行时才真正连接服务器。
type Clients struct {
	clients map[string]*redis.Client
	mu      sync.RWMutex
}

func newClients() *Clients {
	return &Clients{
		clients: make(map[string]*redis.Client),
	}
}

func (c *Clients) register(opts ClientOptions) (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.clients[opts.Name]; exists {
		return nil, fmt.Errorf("redis client '%s' already registered", opts.Name)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})

	c.clients[opts.Name] = client
	return client, nil
}

// Get 获取指定名称的 Redis 客户端
func (c *Clients) Get(name string) (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, exists := c.clients[name]
	if !exists {
		return nil, fmt.Errorf("redis client '%s' not found", name)
	}
	return client, nil
}

// Names 返回已注册的客户端名称
func (c *Clients) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.clients))
	for name := range c.clients {
		names = append(names, name)
	}
	return names
}

// Close 关闭所有 Redis 客户端
func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis client '%s': %w", name, err))
		}
	}
	c.clients = make(map[string]*redis.Client)

	return errors.Join(errs...)
}
