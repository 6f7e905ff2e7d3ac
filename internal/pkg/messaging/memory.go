package messaging

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	memoryBuffer      = 64
	memoryMaxAttempts = 3
)

// Memory is an in-process broker. Each published message is delivered to one
// consumer per group; messages published with no consumer are dropped.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]*memoryGroup
	closed bool
	seq    atomic.Uint64
}

type memoryGroup struct {
	ch   chan *memoryMessage
	refs int
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{groups: make(map[string]map[string]*memoryGroup)}
}

// Close stops accepting publishes. Running consumers return when their ctx ends.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Publish enqueues msg for every group subscribed to destination.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return PublishResult{}, io.ErrClosedPipe
	}
	targets := make([]chan *memoryMessage, 0, len(m.groups[destination]))
	for _, g := range m.groups[destination] {
		targets = append(targets, g.ch)
	}
	m.mu.RUnlock()

	now := time.Now()
	id := strconv.FormatUint(m.seq.Add(1), 10)
	for _, ch := range targets {
		mm := &memoryMessage{id: id, body: msg.Body, headers: msg.Headers, ts: now, attempts: 1, requeue: ch}
		select {
		case ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{Destination: destination, Timestamp: now}, nil
}

// Consume joins the group given by WithGroup and blocks until ctx is done.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	g, err := m.join(source, co.group)
	if err != nil {
		return err
	}
	defer m.leave(source, co.group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case mm := <-g.ch:
					//nolint:errcheck // logged by the handler
					_ = dispatch(ctx, DriverMemory, handler, mm, &mm.responded, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) join(topic, group string) (*memoryGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}
	if m.groups[topic] == nil {
		m.groups[topic] = make(map[string]*memoryGroup)
	}
	g, ok := m.groups[topic][group]
	if !ok {
		g = &memoryGroup{ch: make(chan *memoryMessage, memoryBuffer)}
		m.groups[topic][group] = g
	}
	g.refs++

	return g, nil
}

func (m *Memory) leave(topic, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.groups[topic][group]
	if g == nil {
		return
	}
	g.refs--
	if g.refs <= 0 {
		delete(m.groups[topic], group)
	}
}

type memoryMessage struct {
	id        string
	body      []byte
	headers   []Header
	ts        time.Time
	attempts  int
	requeue   chan *memoryMessage
	responded atomic.Bool
}

func (m *memoryMessage) ID() string           { return m.id }
func (m *memoryMessage) Body() []byte         { return m.body }
func (m *memoryMessage) Headers() []Header    { return m.headers }
func (m *memoryMessage) Timestamp() time.Time { return m.ts }
func (m *memoryMessage) Attempts() int        { return m.attempts }

func (m *memoryMessage) Ack(context.Context) error {
	m.responded.Store(true)
	return nil
}

// Nack redelivers the message until it has been attempted memoryMaxAttempts times.
func (m *memoryMessage) Nack(context.Context) error {
	if m.responded.Swap(true) || m.attempts >= memoryMaxAttempts {
		return nil
	}

	next := &memoryMessage{
		id: m.id, body: m.body, headers: m.headers, ts: m.ts,
		attempts: m.attempts + 1, requeue: m.requeue,
	}
	select {
	case m.requeue <- next:
	default:
	}
	return nil
}
