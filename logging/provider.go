package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// writerProvider 把格式化后的日志写入 io.Writer。
// 控制台和文件提供者共享这套实现，只在构造时的 sink 上不同。
type writerProvider struct {
	formatter    Formatter
	writer       io.Writer
	async        *AsyncWriter
	file         *os.File
	minimumLevel LogLevel
	mu           sync.Mutex
}

func (p *writerProvider) CreateLogger(category string) Logger {
	return &writerLogger{provider: p, category: category}
}

func (p *writerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *writerProvider) level() LogLevel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minimumLevel
}

func (p *writerProvider) emit(entry *LogEntry) {
	if p.async != nil {
		p.async.WriteLog(entry)
		return
	}

	data, err := p.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: 格式化日志失败: %v\n", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer.Write(data)
}

// Close 排空异步队列并关闭底层文件。
func (p *writerProvider) Close() error {
	if p.async != nil {
		if err := p.async.Close(); err != nil {
			return err
		}
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// nowFn 测试中可替换的时间源
var nowFn = time.Now

// writerLogger 绑定类别和附加字段的轻量视图，写入走 provider。
type writerLogger struct {
	provider *writerProvider
	category string
	fields   []Field
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.provider.level() {
		return
	}

	l.provider.emit(&LogEntry{
		Time:     nowFn(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	return &writerLogger{
		provider: l.provider,
		category: l.category,
		fields:   mergeFields(l.fields, fields),
	}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{
		provider: l.provider,
		category: category,
		fields:   l.fields,
	}
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// NewConsoleLoggerProvider 创建控制台日志提供者。
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) LoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	formatter := &TextFormatter{
		IncludeTimestamp: options.IncludeTimestamp,
		TimestampFormat:  options.TimestampFormat,
		ColorOutput:      options.ColorOutput,
	}
	if formatter.TimestampFormat == "" {
		formatter.TimestampFormat = "2006-01-02 15:04:05"
	}
	return &writerProvider{
		formatter:    formatter,
		writer:       options.Output,
		minimumLevel: LogLevelInfo,
	}
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path       string
	Formatter  Formatter // 默认 TextFormatter，无颜色
	BufferSize int       // 异步队列长度，默认 1024
}

// NewFileLoggerProvider 创建文件日志提供者。
// 写入经过 AsyncWriter 异步排队，Close 时排空并关闭文件。
// 打开文件失败时降级到 stderr。
func NewFileLoggerProvider(options FileLoggerOptions) LoggerProvider {
	formatter := options.Formatter
	if formatter == nil {
		formatter = NewTextFormatter()
	}
	bufferSize := options.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: 打开日志文件 %s 失败: %v\n", options.Path, err)
		return &writerProvider{
			formatter:    formatter,
			writer:       os.Stderr,
			minimumLevel: LogLevelInfo,
		}
	}

	return &writerProvider{
		formatter:    formatter,
		writer:       file,
		async:        NewAsyncWriter(file, formatter, bufferSize),
		file:         file,
		minimumLevel: LogLevelInfo,
	}
}
