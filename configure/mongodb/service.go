package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ClientOptions MongoDB 客户端配置选项
type ClientOptions struct {
	Name        string
	Uri         string
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongo client name is required")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	return nil
}

// Clients 按名称管理多个 MongoDB 客户端。
type Clients struct {
	clients map[string]*mgo.Client
	mu      sync.RWMutex
}

func newClients() *Clients {
	return &Clients{
		clients: make(map[string]*mgo.Client),
	}
}

func (c *Clients) register(opts ClientOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.clients[opts.Name]; exists {
		return fmt.Errorf("mongo client '%s' already registered", opts.Name)
	}

	clientOpts := options.Client()
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	client, err := mgo.NewClient(ctx, opts.Uri, clientOpts)
	if err != nil {
		return fmt.Errorf("create mongo client '%s': %w", opts.Name, err)
	}

	c.clients[opts.Name] = client
	return nil
}

// Get 获取指定名称的客户端
func (c *Clients) Get(name string) (*mgo.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, exists := c.clients[name]
	if !exists {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return client, nil
}

// Each 遍历所有客户端
func (c *Clients) Each(fn func(name string, client *mgo.Client)) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, client := range c.clients {
		fn(name, client)
	}
}

// Close 断开所有客户端连接
func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for name, client := range c.clients {
		if err := client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo client '%s': %w", name, err))
		}
	}
	c.clients = make(map[string]*mgo.Client)

	return errors.Join(errs...)
}
