// Package logger предоставляет логирование с префиксом сервиса и асинхронной записью,
// чтобы не блокировать основное приложение (в том числе цикл опроса диалога).
// Поддерживаются уровни debug/info/warn/error и логирование времени выполнения функций.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const asyncBufferSize = 8192

type level int32

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	mu       sync.RWMutex
	prefix   string
	logLevel = levelInfo
	ch       chan string
	once     sync.Once
	pending  sync.WaitGroup
)

func parseLevel(s string) level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func initWorker() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		mu.Lock()
		logLevel = parseLevel(v)
		mu.Unlock()
	}
	ch = make(chan string, asyncBufferSize)
	go func() {
		for msg := range ch {
			log.Print(msg)
			pending.Done()
		}
	}()
}

func enqueue(lv level, msg string) {
	once.Do(initWorker)
	mu.RLock()
	skip := lv < logLevel
	mu.RUnlock()
	if skip {
		return
	}
	pending.Add(1)
	select {
	case ch <- msg:
	default:
		// Буфер полон — не блокируем, теряем лог
		pending.Done()
	}
}

// SetPrefix задаёт префикс для всех последующих логов (например "api", "portalctl").
func SetPrefix(p string) {
	mu.Lock()
	prefix = p
	mu.Unlock()
}

// SetLevel задаёт уровень из конфигурации ("debug", "info", "warn", "error").
func SetLevel(s string) {
	once.Do(initWorker)
	mu.Lock()
	logLevel = parseLevel(s)
	mu.Unlock()
}

// SetOutput перенаправляет вывод (CLI пишет логи в stderr, тесты — в буфер).
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Flush ждёт, пока очередь логов будет записана. Нужен короткоживущим процессам перед выходом.
func Flush() {
	once.Do(initWorker)
	pending.Wait()
}

func tag() string {
	mu.RLock()
	defer mu.RUnlock()
	if prefix == "" {
		return ""
	}
	return "[" + prefix + "] "
}

func Debugf(format string, v ...any) {
	enqueue(levelDebug, tag()+"DEBUG: "+fmt.Sprintf(format, v...))
}

// Info пишет в log с префиксом (асинхронно).
func Info(v ...any) {
	enqueue(levelInfo, tag()+fmt.Sprint(v...))
}

// Infof форматирует и пишет с префиксом (асинхронно).
func Infof(format string, v ...any) {
	enqueue(levelInfo, tag()+fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	enqueue(levelWarn, tag()+"WARN: "+fmt.Sprintf(format, v...))
}

// Error пишет ошибку с префиксом (асинхронно).
func Error(v ...any) {
	enqueue(levelError, tag()+"ERROR: "+fmt.Sprint(v...))
}

// Errorf форматирует ошибку с префиксом (асинхронно).
func Errorf(format string, v ...any) {
	enqueue(levelError, tag()+"ERROR: "+fmt.Sprintf(format, v...))
}

// LogDuration логирует имя функции и время выполнения в миллисекундах (асинхронно).
// При уровне info логирует только вызовы дольше 100ms; при debug — все.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	mu.RLock()
	debug := logLevel == levelDebug
	mu.RUnlock()
	if debug || elapsed >= 100*time.Millisecond {
		enqueue(levelInfo, fmt.Sprintf("%sfn=%s duration_ms=%d", tag(), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration возвращает функцию для вызова в defer: defer logger.DeferLogDuration("msg.Create", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
