package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

var (
	ErrDeliveryFailed = errors.New("message delivery failed")
	ErrEmptyMessage   = errors.New("message is empty")
)

const defaultHistorySize = 20

type Config struct {
	Target kit.ChatTarget
	// HistorySize bounds the in-memory delivery history; 0 means 20.
	HistorySize int
}

type HistoryItem struct {
	At   time.Time
	Text string
}

// Service sends text to one fixed chat.
//
// It is safe for concurrent use.
type Service struct {
	cfg    Config
	sender kit.Sender
	log    logx.Logger

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Service {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, sender: sender, log: log}
}

// Send delivers text to the configured chat.
func (s *Service) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	s.log.Debug("sending message", logx.Int64("chat_id", s.cfg.Target.ChatID), logx.Int("len", len(text)))

	ref, err := s.sender.SendText(ctx, s.cfg.Target, text, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		s.log.Error("message delivery failed", logx.Int64("chat_id", s.cfg.Target.ChatID), logx.Err(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.log.Info("message delivered", logx.Int64("chat_id", ref.ChatID), logx.Int("message_id", ref.MessageID))
	s.remember(text)
	return nil
}

func (s *Service) remember(text string) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Text: text})
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append([]HistoryItem(nil), s.history[over:]...)
	}
}

// History returns the most recent deliveries, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}
