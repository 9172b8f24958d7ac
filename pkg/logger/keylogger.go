package logger

import (
	"strings"
	"sync"
)

// Level is the level a KeyLogger event is emitted at.
type Level int

const (
	LevelOff Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name to a Level. Unknown names map to LevelOff.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelOff
	}
}

// Log emits msg on l at level. LevelOff and a nil logger drop the message.
func Log(l Logger, level Level, msg string, args ...any) {
	if l == nil {
		return
	}
	switch level {
	case LevelDebug:
		l.Debug(msg, args...)
	case LevelInfo:
		l.Info(msg, args...)
	case LevelWarn:
		l.Warn(msg, args...)
	case LevelError:
		l.Error(msg, args...)
	}
}

// LevelMap assigns a level to each named event.
type LevelMap map[string]Level

// KeyLogger logs named events at individually configured levels.
type KeyLogger struct {
	mu     sync.RWMutex
	logger Logger
	levels LevelMap
}

// NewKeyLogger creates a KeyLogger. Events missing from levels are dropped.
func NewKeyLogger(l Logger, levels LevelMap) *KeyLogger {
	copied := make(LevelMap, len(levels))
	for k, v := range levels {
		copied[k] = v
	}
	return &KeyLogger{logger: l, levels: copied}
}

// SetLogger swaps the target logger.
func (k *KeyLogger) SetLogger(l Logger) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = l
}

// Logger returns the target logger.
func (k *KeyLogger) Logger() Logger {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.logger
}

// SetLevel changes the level of one event.
func (k *KeyLogger) SetLevel(event string, level Level) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.levels[event] = level
}

// LogKey emits msg for event at the event's configured level.
func (k *KeyLogger) LogKey(event, msg string, args ...any) {
	k.mu.RLock()
	l, level := k.logger, k.levels[event]
	k.mu.RUnlock()
	Log(l, level, msg, args...)
}
