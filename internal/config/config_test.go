package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "WATCHED_POST_IDS", "REPLY_DELAY", "LEDGER_BACKEND", "ENABLE_POLLING", "MOLTBOOK_AGENT_ID"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "3456", cfg.Port)
	assert.Equal(t, defaultWatchedPosts, cfg.WatchedPosts)
	assert.Equal(t, 3*time.Second, cfg.ReplyDelay)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, LedgerJSON, cfg.LedgerBackend)
	assert.True(t, cfg.EnablePolling)
	assert.Equal(t, "NeutronMemoryBot", cfg.AgentName)
	assert.Equal(t, DefaultAgentID, cfg.MoltbookAgentID)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WATCHED_POST_IDS", " p1, ,p2 ")
	t.Setenv("REPLY_DELAY", "1500")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("ENABLE_POLLING", "false")

	cfg := LoadConfig()
	assert.Equal(t, []string{"p1", "p2"}, cfg.WatchedPosts)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReplyDelay)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.False(t, cfg.EnablePolling)
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_DELAY", "soon")
	assert.Equal(t, time.Second, GetEnvDuration("SOME_DELAY", time.Second))
}

func TestValidateLedgerBackends(t *testing.T) {
	cfg := Config{MoltbookAgentID: "agent-1", LedgerBackend: LedgerPostgres, PollInterval: time.Minute}
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/agent"
	assert.NoError(t, cfg.Validate())

	cfg = Config{MoltbookAgentID: "agent-1", LedgerBackend: LedgerRedis, PollInterval: time.Minute}
	assert.Error(t, cfg.Validate())

	cfg = Config{MoltbookAgentID: "agent-1", LedgerBackend: "sqlite", PollInterval: time.Minute}
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresAgentID(t *testing.T) {
	cfg := Config{LedgerBackend: LedgerJSON, LedgerPath: "data/ledger.json", PollInterval: time.Minute}
	assert.ErrorContains(t, cfg.Validate(), "MOLTBOOK_AGENT_ID")

	cfg.MoltbookAgentID = "agent-1"
	assert.NoError(t, cfg.Validate())
}

func TestTelegramEnabled(t *testing.T) {
	assert.False(t, Config{TelegramToken: "t"}.TelegramEnabled())
	assert.True(t, Config{TelegramToken: "t", TelegramChatID: "1"}.TelegramEnabled())
}
