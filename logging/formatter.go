package logging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Formatter 把日志条目渲染成字节序列（含换行）。
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

// TextFormatter 单行文本格式化器
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

// Format 渲染为 "时间 级别 [类别] 消息 {k=v, ...}\n"。
// 返回独立的字节切片，内部 buffer 归还池。
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buffer := GlobalBufferPool.Get()
	defer GlobalBufferPool.Put(buffer)

	if f.IncludeTimestamp {
		buffer.WriteString(entry.Time.Format(f.TimestampFormat))
		buffer.WriteByte(' ')
	}

	levelStr := entry.Level.String()
	if f.ColorOutput {
		buffer.WriteString(colorize(entry.Level, levelStr))
	} else {
		buffer.WriteString(levelStr)
	}

	if entry.Category != "" {
		buffer.WriteString(" [")
		buffer.WriteString(entry.Category)
		buffer.WriteByte(']')
	}

	buffer.WriteByte(' ')
	buffer.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buffer.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buffer.WriteString(", ")
			}
			buffer.WriteString(field.Key)
			buffer.WriteByte('=')
			fmt.Fprintf(buffer, "%v", field.Value)
		}
		buffer.WriteByte('}')
	}

	buffer.WriteByte('\n')

	result := make([]byte, buffer.Len())
	copy(result, buffer.Bytes())
	return result, nil
}

// JsonFormatter JSON 行格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = field.Value
		}
		data["fields"] = fields
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// colorize 为日志级别添加 ANSI 颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}
