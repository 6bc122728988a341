package logging

import (
	"os"
	"sync"
)

// Builder 日志构建器，组装提供者并生成 LoggerFactory。
type Builder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.Mutex
}

// NewBuilder 创建日志构建器，默认最小级别 Info。
func NewBuilder() *Builder {
	return &Builder{
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别。
func (b *Builder) SetMinimumLevel(level LogLevel) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者。
func (b *Builder) AddProvider(provider LoggerProvider) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志（带时间戳和颜色）。
func (b *Builder) AddConsole(options ...ConsoleLoggerOptions) *Builder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 添加异步文件日志。
func (b *Builder) AddFile(path string, options ...FileLoggerOptions) *Builder {
	opts := FileLoggerOptions{Path: path}
	if len(options) > 0 {
		opts = options[0]
		opts.Path = path
	}
	return b.AddProvider(NewFileLoggerProvider(opts))
}

// AddJsonFile 添加 JSON 行格式的异步文件日志。
func (b *Builder) AddJsonFile(path string) *Builder {
	return b.AddProvider(NewFileLoggerProvider(FileLoggerOptions{
		Path:      path,
		Formatter: NewJsonFormatter(),
	}))
}

// Build 构建日志工厂。
func (b *Builder) Build() LoggerFactory {
	b.mu.Lock()
	defer b.mu.Unlock()

	factory := &loggerFactory{
		minimumLevel: b.minimumLevel,
	}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}

// NewLogger 创建一个默认的控制台 Logger（便于测试和示例使用）。
func NewLogger() Logger {
	return NewBuilder().AddConsole().Build().CreateLogger("default")
}
