package logs

import (
	"sync"
	"time"
)

type Entry struct {
	TimeStamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Logger keeps the most recent log entries in a fixed-size ring so the
// health analyzer can inspect recent history without unbounded growth.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	level   Level
}

// NewLogger returns a logger keeping at most maxSize entries and
// recording only entries at or above the given level.
func NewLogger(maxSize int, level Level) *Logger {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Logger{
		entries: make([]Entry, maxSize),
		level:   level,
	}
}

// log applies level filtering and ring buffer behavior.
func (l *Logger) log(level Level, msg string) {
	if levelPriority[level] < levelPriority[l.level] {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = Entry{
		TimeStamp: time.Now(),
		Level:     level,
		Message:   msg,
	}
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

func (l *Logger) Debug(msg string) {
	l.log(DEBUG, msg)
}

func (l *Logger) Info(msg string) {
	l.log(INFO, msg)
}

func (l *Logger) Warn(msg string) {
	l.log(WARN, msg)
}

func (l *Logger) Error(msg string) {
	l.log(ERROR, msg)
}

// GetLast returns up to n entries, oldest first.
func (l *Logger) GetLast(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.next
	if l.full {
		total = len(l.entries)
	}
	if n > total {
		n = total
	}

	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := l.next - n + i
		if idx < 0 {
			idx += len(l.entries)
		}
		out[i] = l.entries[idx]
	}
	return out
}
