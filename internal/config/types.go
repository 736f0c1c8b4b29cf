package config

// Config is the on-disk configuration (JSON or YAML).
//
// Secrets are normally provided through the environment (see ApplyEnv);
// values found there override the file.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Ops       OpsConfig       `json:"ops"`
}

// PracticumConfig configures the homework review API.
//
// All durations are Go duration strings (e.g. "30s", "10m").
type PracticumConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Token    string `json:"token,omitempty"`
	// PollInterval accepts a duration ("10m"), HH:MM ("00:10") or a cron
	// expression ("*/10 * * * *", "@every 10m"). Read once at startup.
	PollInterval   string `json:"poll_interval,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	// Timezone applies to cron poll intervals only.
	Timezone string `json:"timezone,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// ChatID is the destination of status updates and error reports.
	ChatID   string `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// GroupLog is an optional chat receiving log lines (see logging.telegram).
	GroupLog       string `json:"group_log,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// OpsConfig controls the optional operational HTTP server
// (/healthz, /metrics, /debug/pprof/).
//
// Prefer binding to localhost. A non-loopback address requires a token
// unless allow_insecure is set.
type OpsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:9464"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Practicum: PracticumConfig{
			Endpoint:       "https://practicum.yandex.ru/api/user_api/homework_statuses/",
			PollInterval:   "10m",
			RequestTimeout: "30s",
		},
		Telegram: TelegramConfig{RequestTimeout: "10s"},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
			File:    LoggingFile{Path: "./homeworkbot.log"},
			Telegram: LoggingTelegram{
				MinLevel:   "ERROR",
				RatePerSec: 1,
			},
		},
		Ops: OpsConfig{Addr: "127.0.0.1:9464"},
	}
}
