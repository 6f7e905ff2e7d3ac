package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
}

const testConfig = `
app:
  name: passgate-test
modules:
  identity:
    status_token: status-secret
    notifier:
      driver: broker
messaging:
  driver: memory
hash:
  hmac:
    secret: test-secret
instrument:
  log_level: error
`

type dispatchSink struct {
	mu   sync.Mutex
	msgs []event.OTPDispatchMessage
}

func (s *dispatchSink) handle(_ context.Context, msg messaging.Message) error {
	var m event.OTPDispatchMessage
	if err := json.Unmarshal(msg.Body(), &m); err != nil {
		return nil
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	return nil
}

func (s *dispatchSink) last() (event.OTPDispatchMessage, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return event.OTPDispatchMessage{}, 0
	}
	return s.msgs[len(s.msgs)-1], len(s.msgs)
}

func newTestApp(t *testing.T, yaml string) (*App, *dispatchSink) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml), defaults)
	require.NoError(t, err)

	a := newWithConfig(cfg)

	sink := &dispatchSink{}
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		//nolint:errcheck // returns context.Canceled on cleanup
		a.messaging.Consume(consumeCtx, event.OTPDispatchDestination, sink.handle, messaging.WithGroup("test"))
	}()

	// wait for the consumer to join before any passcode is dispatched
	require.Eventually(t, func() bool {
		if _, err := a.messaging.Publish(context.Background(), event.OTPDispatchDestination,
			messaging.OutgoingMessage{Body: []byte(`{}`)}); err != nil {
			return false
		}
		_, n := sink.last()
		return n > 0
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		stopConsume()
		<-consumed

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Stop(ctx)
	})

	return a, sink
}

func startApp(t *testing.T) (string, *dispatchSink) {
	t.Helper()

	a, sink := newTestApp(t, testConfig)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	a.Serve(l)

	return "http://" + l.Addr().String(), sink
}

func doJSON(t *testing.T, method, url string, payload any, token string) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(payload))
		body = buf
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func decodeSuccess(t *testing.T, body []byte, out any) successEnvelope {
	t.Helper()

	var env successEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestApp_PasscodeFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("starts the full application")
	}

	base, sink := startApp(t)

	code, _ := doJSON(t, http.MethodGet, base+"/health", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, http.MethodPost, base+"/api/v1/identity/otp/generate", map[string]string{"email": " Visitor@Example.com "}, "")
	require.Equal(t, http.StatusOK, code, string(body))

	var gen struct {
		SessionID string `json:"session_id"`
	}
	env := decodeSuccess(t, body, &gen)
	assert.Equal(t, "Verification code sent to visitor@example.com", env.Message)
	require.NotEmpty(t, gen.SessionID)

	var dispatched event.OTPDispatchMessage
	require.Eventually(t, func() bool {
		m, _ := sink.last()
		dispatched = m
		return m.Identity == "visitor@example.com"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, dispatched.Code, 6)

	wrong := "000000"
	if dispatched.Code == wrong {
		wrong = "111111"
	}
	code, body = doJSON(t, http.MethodPost, base+"/api/v1/identity/otp/verify", map[string]string{"session_id": gen.SessionID, "otp": wrong}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid OTP", decodeError(t, body).Message)

	code, body = doJSON(t, http.MethodPost, base+"/api/v1/identity/otp/verify", map[string]string{"session_id": gen.SessionID, "otp": dispatched.Code}, "")
	require.Equal(t, http.StatusOK, code, string(body))
	var ver struct {
		Success bool   `json:"success"`
		Email   string `json:"email"`
	}
	env = decodeSuccess(t, body, &ver)
	assert.Equal(t, "Authentication successful", env.Message)
	assert.True(t, ver.Success)
	assert.Equal(t, "visitor@example.com", ver.Email)

	code, body = doJSON(t, http.MethodPost, base+"/api/v1/identity/otp/verify", map[string]string{"session_id": gen.SessionID, "otp": dispatched.Code}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "OTP expired or invalid session", decodeError(t, body).Message)
}

func TestApp_RateLimitAndStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("starts the full application")
	}

	base, _ := startApp(t)
	generate := base + "/api/v1/identity/otp/generate"

	for range 3 {
		code, body := doJSON(t, http.MethodPost, generate, map[string]string{"email": "busy@example.com"}, "")
		require.Equal(t, http.StatusOK, code, string(body))
	}

	code, body := doJSON(t, http.MethodPost, generate, map[string]string{"email": "BUSY@example.com"}, "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many requests. Please try again in 10 minutes.", decodeError(t, body).Message)

	code, body = doJSON(t, http.MethodPost, generate, map[string]string{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, decodeError(t, body).Error, "email")

	status := base + "/api/v1/identity/otp/status"
	code, _ = doJSON(t, http.MethodGet, status, nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = doJSON(t, http.MethodGet, status, nil, "status-secret")
	require.Equal(t, http.StatusOK, code)
	var st struct {
		ActiveSessions     int `json:"active_sessions"`
		RateLimiterEntries int `json:"rate_limiter_entries"`
	}
	decodeSuccess(t, body, &st)
	assert.Equal(t, 3, st.ActiveSessions)
	assert.Equal(t, 1, st.RateLimiterEntries)

	code, body = doJSON(t, http.MethodGet, base+"/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.True(t, strings.Contains(string(body), "endpoint not found"))
}

func TestApp_DispatchUsesEffectiveValidity(t *testing.T) {
	a, sink := newTestApp(t, strings.Replace(testConfig,
		"    status_token: status-secret\n",
		"    status_token: status-secret\n    otp:\n      validity_seconds: 0\n", 1))

	require.Equal(t, 5*time.Minute, a.otpManager.Validity())

	sent := time.Now()
	require.NoError(t, a.notifier.Send(context.Background(), "a@x.com", "482913"))

	var got event.OTPDispatchMessage
	require.Eventually(t, func() bool {
		got, _ = sink.last()
		return got.Code == "482913"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "a@x.com", got.Identity)
	assert.WithinDuration(t, sent.Add(5*time.Minute), got.ExpiresAt, 5*time.Second)
}

func TestApp_BrokerWithoutConsumer(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{
			name: "memory broker and notification disabled",
			yaml: "modules:\n  identity:\n    notifier:\n      driver: broker\nmessaging:\n  driver: memory\n",
			want: true,
		},
		{
			name: "memory broker consumed in process",
			yaml: "modules:\n  identity:\n    notifier:\n      driver: broker\n  notification:\n    enabled: true\nmessaging:\n  driver: memory\n",
		},
		{
			name: "external broker",
			yaml: "modules:\n  identity:\n    notifier:\n      driver: broker\nmessaging:\n  driver: nats\n",
		},
		{
			name: "log notifier",
			yaml: "modules:\n  identity:\n    notifier:\n      driver: log\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml), defaults)
			require.NoError(t, err)

			a := &App{config: cfg}
			assert.Equal(t, tt.want, a.brokerWithoutConsumer())
		})
	}
}
