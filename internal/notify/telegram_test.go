package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	sent     []string
	parse    []string
	failSend bool
}

func (b *botServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"neutron_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		b.mu.Lock()
		b.sent = append(b.sent, r.Form.Get("text"))
		b.parse = append(b.parse, r.Form.Get("parse_mode"))
		fail := b.failSend
		b.mu.Unlock()
		if fail {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestTelegram(t *testing.T, b *botServer) *Telegram {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.handler))
	t.Cleanup(srv.Close)

	tg, err := NewTelegramWithEndpoint("123:abc", srv.URL+"/bot%s/%s", srv.Client(), "42")
	require.NoError(t, err)
	return tg
}

func TestNotifySendsMarkdown(t *testing.T) {
	b := &botServer{}
	tg := newTestTelegram(t, b)

	err := tg.Notify(context.Background(), "Reply posted", "Ana: what_is *memory*?")
	require.NoError(t, err)

	require.Len(t, b.sent, 1)
	assert.Equal(t, "*[Reply posted]*\n\nAna: what\\_is \\*memory\\*?", b.sent[0])
	assert.Equal(t, "Markdown", b.parse[0])
	assert.Equal(t, int64(42), tg.ChatID)
}

func TestNotifySendError(t *testing.T) {
	b := &botServer{failSend: true}
	tg := newTestTelegram(t, b)

	err := tg.Notify(context.Background(), "Reply failed", "x")
	assert.ErrorContains(t, err, "chat not found")
}

func TestNotifyCancelled(t *testing.T) {
	b := &botServer{}
	tg := newTestTelegram(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Notify(ctx, "t", "b"), context.Canceled)
	assert.Empty(t, b.sent)
}

func TestInvalidChatID(t *testing.T) {
	b := &botServer{}
	srv := httptest.NewServer(http.HandlerFunc(b.handler))
	defer srv.Close()

	_, err := NewTelegramWithEndpoint("123:abc", srv.URL+"/bot%s/%s", srv.Client(), "not-a-number")
	assert.ErrorContains(t, err, "invalid chat id")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "\\[link] \\`code\\`", escapeMarkdown("[link] `code`"))
}
