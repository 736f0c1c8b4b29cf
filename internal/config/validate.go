package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"homeworkbot/internal/schedule"
)

// ErrConfigurationIncomplete means a required secret is missing.
// It is fatal: the bot must not start.
var ErrConfigurationIncomplete = errors.New("configuration incomplete")

// MissingSecrets lists the environment names of required values that are empty.
func MissingSecrets(cfg *Config) []string {
	var missing []string
	if strings.TrimSpace(cfg.Practicum.Token) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		missing = append(missing, EnvTelegramChatID)
	}
	return missing
}

// Validate checks required secrets first, then the shape of optional settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: no config", ErrConfigurationIncomplete)
	}
	if missing := MissingSecrets(cfg); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfigurationIncomplete, strings.Join(missing, ", "))
	}
	if _, err := ParseChatID("telegram.chat_id", cfg.Telegram.ChatID); err != nil {
		return err
	}
	if cfg.Telegram.GroupLog != "" {
		if _, err := ParseChatID("telegram.group_log", cfg.Telegram.GroupLog); err != nil {
			return err
		}
	}
	if _, err := schedule.NewTicker(cfg.Practicum.PollInterval, nil); err != nil {
		return fmt.Errorf("practicum.poll_interval: %w", err)
	}
	if tz := strings.TrimSpace(cfg.Practicum.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("practicum.timezone: %w", err)
		}
	}
	for path, raw := range map[string]string{
		"practicum.request_timeout": cfg.Practicum.RequestTimeout,
		"telegram.request_timeout":  cfg.Telegram.RequestTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	return nil
}

// ParseChatID parses a numeric Telegram chat id (negative for groups and channels).
func ParseChatID(path, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s: invalid chat id %q", path, raw)
	}
	return id, nil
}
