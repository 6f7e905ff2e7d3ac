package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/notification/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/notifier"
	"github.com/shandysiswandi/passgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticID string

func (s staticID) Generate() string { return string(s) }

type recordUC struct {
	mu   sync.Mutex
	err  error
	ins  []usecase.DeliverPasscodeInput
	cIDs []string
}

func (r *recordUC) DeliverPasscode(ctx context.Context, in usecase.DeliverPasscodeInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ins = append(r.ins, in)
	r.cIDs = append(r.cIDs, instrument.GetCorrelationID(ctx))
	return r.err
}

func (r *recordUC) snapshot() ([]usecase.DeliverPasscodeInput, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]usecase.DeliverPasscodeInput(nil), r.ins...), append([]string(nil), r.cIDs...)
}

type stubMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m stubMessage) ID() string                  { return "1" }
func (m stubMessage) Body() []byte                { return m.body }
func (m stubMessage) Headers() []messaging.Header { return m.headers }
func (m stubMessage) Timestamp() time.Time        { return time.Time{} }
func (m stubMessage) Attempts() int               { return 1 }
func (m stubMessage) Ack(context.Context) error   { return nil }
func (m stubMessage) Nack(context.Context) error  { return nil }

func TestMQHandler_OTPDispatch(t *testing.T) {
	exp := time.Date(2026, 5, 4, 9, 5, 0, 0, time.UTC)
	body, err := json.Marshal(event.OTPDispatchMessage{Identity: "a@example.com", Code: "482913", ExpiresAt: exp})
	require.NoError(t, err)

	t.Run("Decoded", func(t *testing.T) {
		uc := &recordUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		msg := stubMessage{body: body, headers: []messaging.Header{{Key: event.HeaderCorrelationID, Value: []byte("cid-1")}}}
		require.NoError(t, h.OTPDispatch(context.Background(), msg))

		ins, cIDs := uc.snapshot()
		require.Len(t, ins, 1)
		assert.Equal(t, "a@example.com", ins[0].Identity)
		assert.Equal(t, "482913", ins[0].Code)
		assert.True(t, exp.Equal(ins[0].ExpiresAt))
		assert.Equal(t, []string{"cid-1"}, cIDs)
	})

	t.Run("GeneratedCorrelationID", func(t *testing.T) {
		uc := &recordUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPDispatch(context.Background(), stubMessage{body: body}))
		_, cIDs := uc.snapshot()
		assert.Equal(t, []string{"generated"}, cIDs)
	})

	t.Run("MalformedBodyIsDropped", func(t *testing.T) {
		uc := &recordUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPDispatch(context.Background(), stubMessage{body: []byte("{")}))
		ins, _ := uc.snapshot()
		assert.Empty(t, ins)
	})

	t.Run("UsecaseErrorRequeues", func(t *testing.T) {
		h := &MQHandler{uc: &recordUC{err: errors.New("smtp down")}, uuid: staticID("g"), ins: instrument.NewNoop()}
		assert.Error(t, h.OTPDispatch(context.Background(), stubMessage{body: body}))
	})
}

func TestRegisterMQConsumer_BrokerRoundTrip(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: otp_dispatch_notification
    concurrency: 2
`), nil)
	require.NoError(t, err)

	broker := messaging.NewMemory()
	routines := goroutine.NewManager(4)
	uc := &recordUC{}

	ctx, cancel := context.WithCancel(context.Background())
	started := RegisterMQConsumer(ctx, cfg, routines, broker, staticID("g"), uc, instrument.NewNoop())
	require.Equal(t, 1, started)

	pub, err := notifier.NewBroker(notifier.BrokerOptions{
		Publisher: broker,
		Clock:     clock.NewManual(time.Now()),
		Validity:  5 * time.Minute,
	})
	require.NoError(t, err)

	pubCtx := instrument.SetCorrelationID(context.Background(), "cid-req")

	// the consumer joins asynchronously; publishes before that are dropped
	require.Eventually(t, func() bool {
		if err := pub.Send(pubCtx, "a@example.com", "482913"); err != nil {
			return false
		}
		ins, _ := uc.snapshot()
		return len(ins) > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, routines.Wait())

	ins, cIDs := uc.snapshot()
	assert.Equal(t, "a@example.com", ins[0].Identity)
	assert.Equal(t, "482913", ins[0].Code)
	assert.Equal(t, "cid-req", cIDs[0])
	require.NoError(t, broker.Close())
}

func TestRegisterMQConsumer_NoneEnabled(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    consumer_names: other\n"), nil)
	require.NoError(t, err)

	routines := goroutine.NewManager(1)
	n := RegisterMQConsumer(context.Background(), cfg, routines, messaging.NewMemory(), staticID("g"), &recordUC{}, instrument.NewNoop())
	assert.Zero(t, n)
	require.NoError(t, routines.Wait())
}
