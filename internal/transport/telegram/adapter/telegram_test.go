package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

func TestSplitShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitTelegramText("hello", 10, ""))
}

func TestSplitPrefersNewlines(t *testing.T) {
	in := "aaaa\nbbbb\ncccc"
	got := splitTelegramText(in, 10, "")
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, got)
}

func TestSplitHardCutWithoutNewlines(t *testing.T) {
	got := splitTelegramText(strings.Repeat("x", 25), 10, "")
	require.Len(t, got, 3)
	assert.Equal(t, strings.Repeat("x", 10), got[0])
	assert.Equal(t, strings.Repeat("x", 5), got[2])
}

func TestSplitAvoidsHTMLTags(t *testing.T) {
	got := splitTelegramText("abcdefg<b>bold</b>", 9, tele.ModeHTML)
	assert.Equal(t, "abcdefg", got[0])
	assert.True(t, strings.HasPrefix(got[1], "<b>"))
}

func TestSplitCountsRunes(t *testing.T) {
	in := strings.Repeat("я", 8)
	assert.Equal(t, []string{in}, splitTelegramText(in, 8, ""))
}

// fakeBotAPI answers getMe and sendMessage like the Bot API does.
type fakeBotAPI struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"hw","username":"hwbot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		f.mu.Lock()
		f.texts = append(f.texts, toString(params["text"]))
		f.chats = append(f.chats, toString(params["chat_id"]))
		id := len(f.texts)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": id,
				"date":       0,
				"chat":       map[string]any{"id": -1001, "type": "supergroup"},
				"text":       params["text"],
			},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func newTestAdapter(t *testing.T, api http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", URL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	return a
}

func TestSendTextSplitsLongMessages(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	long := strings.Repeat("line of text\n", 400) // > 4000 runes
	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: -1001}, long, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.MessageID)
	assert.Equal(t, int64(-1001), ref.ChatID)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.texts, 2)
	assert.Equal(t, "-1001", api.chats[0])
	assert.Equal(t, strings.TrimRight(long, "\n"), api.texts[0]+"\n"+api.texts[1])
}

func TestSendTextRejectsEmptyTarget(t *testing.T) {
	a := newTestAdapter(t, &fakeBotAPI{})
	_, err := a.SendText(context.Background(), kit.ChatTarget{}, "hi", nil)
	require.Error(t, err)
}

func TestSendTextHonoursCancelledContext(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: 1}, "hi", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.texts)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{}, logx.Nop())
	require.Error(t, err)
}
