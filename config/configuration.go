package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Configuration 只读配置视图（类似于 .NET Core IConfiguration）。
// 路径支持 "a:b:c" 或 "a.b.c" 两种分隔符。
type Configuration interface {
	// Get 获取配置值，不存在时返回空字符串
	Get(key string) string
	// GetWithDefault 获取配置值，不存在时返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetDuration 获取时长配置值（"5s"、"1m30s" 等）
	GetDuration(key string) (time.Duration, error)
	// Exists 判断键是否存在
	Exists(key string) bool
	// GetSection 获取配置节，返回以该节为根的新视图
	GetSection(key string) Configuration
	// Bind 绑定配置节到结构体
	Bind(key string, target any) error
	// GetAll 获取所有配置的副本
	GetAll() map[string]any
}

// Source 配置源。Load 返回嵌套的 map，后加入的源覆盖先加入的。
type Source interface {
	Load() (map[string]any, error)
	Name() string
}

// Builder 按顺序组装配置源并构建 Configuration。
type Builder struct {
	mu      sync.Mutex
	sources []Source
}

// NewBuilder 创建配置构建器。
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加配置源。
func (b *Builder) Add(source Source) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源。
func (b *Builder) AddJsonFile(path string, optional ...bool) *Builder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源。
func (b *Builder) AddYamlFile(path string, optional ...bool) *Builder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源，prefix 用于筛选并在键中剥除。
func (b *Builder) AddEnvironmentVariables(prefix string) *Builder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源。
func (b *Builder) AddInMemory(data map[string]any) *Builder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源。
func (b *Builder) AddEtcd(opts EtcdOptions) *Builder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// Build 依次加载所有配置源并合并。任何一个源失败都会使构建失败。
func (b *Builder) Build() (Configuration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := make(map[string]any)
	for _, source := range b.sources {
		data, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: 加载配置源 %s 失败: %w", source.Name(), err)
		}
		mergeMaps(merged, data)
	}

	return &configuration{data: merged}, nil
}

// configuration 构建完成后数据不可变，所有读取无需加锁。
type configuration struct {
	data map[string]any
}

func (c *configuration) Get(key string) string {
	value := c.lookup(key)
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	value := c.lookup(key)
	if value == nil {
		return 0, fmt.Errorf("config: 键 %s 不存在", key)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: 无法将 %v 转换为 int", value)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	value := c.lookup(key)
	if value == nil {
		return false, fmt.Errorf("config: 键 %s 不存在", key)
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: 无法将 %v 转换为 bool", value)
	}
}

func (c *configuration) GetDuration(key string) (time.Duration, error) {
	value := c.lookup(key)
	if value == nil {
		return 0, fmt.Errorf("config: 键 %s 不存在", key)
	}
	switch v := value.(type) {
	case string:
		return time.ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("config: 无法将 %v 转换为 time.Duration", value)
	}
}

func (c *configuration) Exists(key string) bool {
	return c.lookup(key) != nil
}

func (c *configuration) GetSection(key string) Configuration {
	if m, ok := c.lookup(key).(map[string]any); ok {
		return &configuration{data: m}
	}
	return &configuration{data: make(map[string]any)}
}

// Bind 通过 JSON 序列化往返绑定，target 按 json 标签解析。
func (c *configuration) Bind(key string, target any) error {
	var data any
	if key == "" {
		data = c.data
	} else {
		data = c.lookup(key)
	}
	if data == nil {
		return fmt.Errorf("config: 键 %s 不存在", key)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: 序列化配置节 %s 失败: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: 绑定配置节 %s 失败: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any, len(c.data))
	mergeMaps(result, c.data)
	return result
}

// lookup 按路径取值，支持 : 和 . 分隔符。
func (c *configuration) lookup(path string) any {
	if path == "" {
		return c.data
	}

	current := any(c.data)
	for _, part := range strings.Split(strings.ReplaceAll(path, ":", "."), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// mergeMaps 递归合并，src 覆盖 dst 的同名键（嵌套 map 逐层合并）。
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if dstMap, ok := dst[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}

// Load 加载并绑定指定节到结构体 T 的泛型辅助函数。
// section 为空时绑定整个配置。
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}
