package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string. Empty means zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// PracticumTimeout is the per-request timeout for the review API.
func (c *Config) PracticumTimeout() time.Duration {
	d, err := ParseDurationOrDefault("practicum.request_timeout", c.Practicum.RequestTimeout, 30*time.Second)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TelegramTimeout is the HTTP timeout of the Bot API client.
func (c *Config) TelegramTimeout() time.Duration {
	d, err := ParseDurationOrDefault("telegram.request_timeout", c.Telegram.RequestTimeout, 10*time.Second)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
