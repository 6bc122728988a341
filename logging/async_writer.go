package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncWriter 异步日志写入器。
// 条目经 channel 排队，后台协程格式化并写入，Close 排空队列后返回。
// 队列满时发送方阻塞，不丢日志。
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	errHandler func(error)
}

// NewAsyncWriter 创建异步写入器并启动后台协程。
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
	}

	w.wg.Add(1)
	go w.process()

	return w
}

// WriteLog 入队日志条目。
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.entryCh <- entry
}

// Close 关闭入口并等待队列排空。幂等。
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.entryCh)
	})
	w.wg.Wait()
	return nil
}

// SetErrorHandler 设置格式化/写入失败的处理函数，默认打到 stderr。
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		data, err := w.formatter.Format(entry)
		if err != nil {
			w.handleError(fmt.Errorf("格式化失败: %w", err))
			continue
		}

		if _, err := w.writer.Write(data); err != nil {
			w.handleError(fmt.Errorf("写入失败: %w", err))
		}
	}
}

func (w *AsyncWriter) handleError(err error) {
	if w.errHandler != nil {
		w.errHandler(err)
		return
	}
	fmt.Fprintf(os.Stderr, "logging: AsyncWriter: %v\n", err)
}
