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

// Leveled logger shared by the portal and the catalog service.
// Init(level) once at startup; Writer adapts it for libraries that expect an
// io.Writer (gin's request logger).

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "info"
}

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// ParseLevel maps debug, info, warn(ing), error and fatal (any case) to a
// Level. ok is false for anything else, in which case Info is returned.
func ParseLevel(s string) (l Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	}
	return LevelInfo, false
}

// Init sets the global log level. Unknown values fall back to info.
func Init(l string) {
	lvl, _ := ParseLevel(l)
	mu.Lock()
	level = lvl
	mu.Unlock()
}

// SetOutput redirects all log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = log.New(w, "", 0)
	mu.Unlock()
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return level.String()
}

func enabled(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func output(l Level, msg string) {
	mu.RLock()
	lg := logger
	mu.RUnlock()
	lg.Print(time.Now().Format(time.RFC3339) + " [" + strings.ToUpper(l.String()) + "] " + msg)
}

func logf(l Level, format string, v ...interface{}) {
	if !enabled(l) {
		return
	}
	output(l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	output(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Println logs at info.
func Println(v ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	output(LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	if enabled(Level(w)) {
		output(Level(w), strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

// Writer returns an io.Writer that logs each write as one line at l.
func Writer(l Level) io.Writer { return levelWriter(l) }
