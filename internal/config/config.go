package config

import (
	"fmt"
	"time"
)

// Ledger backends.
const (
	LedgerJSON     = "json"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// DefaultAgentID is the bot's Moltbook account id.
const DefaultAgentID = "97dbd813-46f2-486c-af4b-f21faf66d2b5"

var defaultWatchedPosts = []string{
	"b6b51aae-f7fb-45a3-aa32-d4745f6025ef",
	"b1dbf53c-cdc2-4b2c-b9e8-3deb088ee701",
}

// Config stores environment configuration for the responder.
type Config struct {
	Port string

	MoltbookBaseURL string
	MoltbookAPIKey  string
	MoltbookAgentID string

	NeutronBaseURL        string
	NeutronAPIKey         string
	NeutronAppID          string
	NeutronExternalUserID string

	AgentName    string
	WatchedPosts []string

	EnablePolling bool
	PollInterval  time.Duration
	ReplyDelay    time.Duration
	HTTPTimeout   time.Duration

	LedgerBackend string
	LedgerPath    string
	DatabaseURL   string
	RedisURL      string

	RulesFile string

	TelegramToken  string
	TelegramChatID string
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port: GetEnv("PORT", "3456"),

		MoltbookBaseURL: GetEnv("MOLTBOOK_BASE_URL", "https://www.moltbook.com/api/v1"),
		MoltbookAPIKey:  GetEnv("MOLTBOOK_API_KEY", ""),
		MoltbookAgentID: GetEnv("MOLTBOOK_AGENT_ID", DefaultAgentID),

		NeutronBaseURL:        GetEnv("NEUTRON_BASE_URL", "https://api-neutron.vanarchain.com"),
		NeutronAPIKey:         GetEnv("NEUTRON_API_KEY", ""),
		NeutronAppID:          GetEnv("NEUTRON_APP_ID", ""),
		NeutronExternalUserID: GetEnv("NEUTRON_EXTERNAL_USER_ID", "neutron-memory-bot"),

		AgentName:    GetEnv("AGENT_NAME", "NeutronMemoryBot"),
		WatchedPosts: GetEnvList("WATCHED_POST_IDS", defaultWatchedPosts),

		EnablePolling: GetEnvBool("ENABLE_POLLING", true),
		PollInterval:  GetEnvDuration("POLL_INTERVAL", 60*time.Second),
		ReplyDelay:    GetEnvDuration("REPLY_DELAY", 3*time.Second),
		HTTPTimeout:   GetEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		LedgerBackend: GetEnv("LEDGER_BACKEND", LedgerJSON),
		LedgerPath:    GetEnv("LEDGER_PATH", "data/replied-comments.json"),
		DatabaseURL:   GetEnv("DATABASE_URL", ""),
		RedisURL:      GetEnv("REDIS_URL", ""),

		RulesFile: GetEnv("RULES_FILE", ""),

		TelegramToken:  GetEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: GetEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.MoltbookAgentID == "" {
		return fmt.Errorf("MOLTBOOK_AGENT_ID is required to recognise the bot's own comments")
	}
	switch c.LedgerBackend {
	case LedgerJSON:
		if c.LedgerPath == "" {
			return fmt.Errorf("LEDGER_PATH is required for the json ledger")
		}
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	case LedgerRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

// TelegramEnabled reports whether operator notifications are configured.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
