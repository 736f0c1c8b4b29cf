package ops

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "homeworkbot/pkg/logx"
)

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	healthy := true
	s := New(Config{}, nil, func() (map[string]any, error) {
		if healthy {
			return map[string]any{"cursor": 10}, nil
		}
		return nil, errors.New("stale")
	}, logx.Nop())

	rec := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cursor":10}`, rec.Body.String())

	healthy = false
	rec = get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "stale")
}

func TestMetricsRoute(t *testing.T) {
	m := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "metric 1\n") })
	s := New(Config{}, m, nil, logx.Nop())

	rec := get(t, s.Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metric 1\n", rec.Body.String())
}

func TestPprofOnlyWhenEnabled(t *testing.T) {
	off := New(Config{}, nil, nil, logx.Nop())
	assert.Equal(t, http.StatusNotFound, get(t, off.Handler(), "/debug/pprof/", nil).Code)

	on := New(Config{Pprof: true}, nil, nil, logx.Nop())
	assert.Equal(t, http.StatusOK, get(t, on.Handler(), "/debug/pprof/", nil).Code)
}

func TestTokenAuth(t *testing.T) {
	s := New(Config{Token: "secret"}, nil, nil, logx.Nop())
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/healthz", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/healthz?token=wrong", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz?token=secret", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz", map[string]string{"Authorization": "Bearer secret"}).Code)
}

func TestStartRefusesInsecureBind(t *testing.T) {
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, nil, nil, logx.Nop())
	require.ErrorIs(t, s.Start(context.Background()), ErrInsecureBind)
}

func TestStartServesAndStops(t *testing.T) {
	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, nil, nil, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Equal(t, "", s.Addr())
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, isLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.True(t, isLoopbackAddr("[::1]:1"))
	assert.False(t, isLoopbackAddr(":9464"))
	assert.False(t, isLoopbackAddr("10.0.0.1:80"))
	assert.False(t, isLoopbackAddr("nonsense"))
}
