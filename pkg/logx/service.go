package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	kit "homeworkbot/internal/transport"
)

// Config mirrors the logging section of the bot config.
type Config struct {
	Level   string // TRACE, DEBUG, INFO, WARN, ERROR (CRITICAL maps to ERROR)
	Console bool
	File    FileConfig
	Chat    ChatConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// ChatConfig forwards lines at or above MinLevel to the log group,
// at most RatePerSec per second.
type ChatConfig struct {
	Enabled    bool
	MinLevel   string
	RatePerSec int
}

const defaultLogFile = "./homeworkbot.log"

// Service owns the log outputs. All methods are safe for concurrent use.
type Service struct {
	mu   sync.Mutex
	file *os.File
	chat *chatSink

	out    atomic.Pointer[zerolog.Logger]
	stdout io.Writer
	stderr io.Writer
}

// New applies cfg and returns the Service with a Logger bound to it.
// The chat sink stays silent until both a sender and a target are set.
func New(cfg Config) (*Service, Logger) {
	setGlobals()
	s := &Service{chat: newChatSink(), stdout: os.Stdout, stderr: os.Stderr}
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	if zl := s.out.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// SetSender binds the chat transport. The Telegram adapter logs through
// this Service, so it is created afterwards and bound here.
func (s *Service) SetSender(sender kit.Sender) { s.chat.setSender(sender) }

// SetChatTarget sets the log group; a zero target mutes the chat sink.
func (s *Service) SetChatTarget(to kit.ChatTarget) { s.chat.setTarget(to) }

// Apply rebuilds the outputs from cfg.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	s.chat.configure(cfg.Chat)

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(s.stdout))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultLogFile
		}
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fmt.Fprintf(s.stderr, "logx: cannot open %s: %v\n", path, err)
		} else {
			s.file = f
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	}
	if cfg.Chat.Enabled {
		if s.chat.target().IsZero() {
			fmt.Fprintln(s.stderr, "logx: chat logging enabled without telegram.group_log")
		}
		s.chat.start()
		sinks = append(sinks, s.chat)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter(s.stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(parseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	s.out.Store(&zl)
}

// Close stops the chat sink and closes the log file.
func (s *Service) Close() error {
	s.chat.stop()
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

func setGlobals() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

func consoleLogger(lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(consoleWriter(os.Stdout)).Level(lvl).With().Timestamp().Logger()
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR", "CRITICAL":
		return zerolog.ErrorLevel
	}
	return def
}
