package feed

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/marquee/internal/metrics"
)

const testURL = "wss://feed.test"

type fakeSocket struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{msgs: make(chan []byte, 16), closed: make(chan struct{})}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case b, ok := <-s.msgs:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, b, nil
	case <-s.closed:
		return 0, nil, net.ErrClosed
	}
}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu      sync.Mutex
	err     error
	sockets []*fakeSocket
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sockets)
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

func newTestManager(t *testing.T, name string, dialer Dialer, vis Visibility) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := NewManager(Options{
		Name:       name,
		URL:        testURL,
		Dialer:     dialer,
		Visibility: vis,
		Clock:      clock,
		Logger:     log.New(io.Discard),
	})
	return m, clock
}

// step handles the next event posted by a dial, reader or timer goroutine.
func step(t *testing.T, m *Manager) event {
	t.Helper()
	select {
	case ev := <-m.events:
		m.handle(ev)
		return ev
	case <-time.After(time.Second):
		require.FailNow(t, "no event posted")
		return event{}
	}
}

func assertNoEvent(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case ev := <-m.events:
		assert.Failf(t, "unexpected event", "kind %d", ev.kind)
	case <-time.After(20 * time.Millisecond):
	}
}

func connected(t *testing.T, m *Manager) {
	t.Helper()
	m.connect()
	require.Equal(t, StateConnecting, m.Status().State)
	ev := step(t, m)
	require.Equal(t, eventOpen, ev.kind)
	require.Equal(t, StateConnected, m.Status().State)
}

func TestManager_ConnectOpens(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newTestManager(t, "open", dialer, nil)

	assert.Equal(t, StateDisconnected, m.Status().State)
	assert.Equal(t, "disconnected, reconnecting...", m.Status().Label)

	connected(t, m)

	status := m.Status()
	assert.Equal(t, "streaming from "+testURL, status.Label)
	assert.True(t, status.Connected())
	assert.NotEmpty(t, status.AttemptID)
	assert.Equal(t, clock.Now(), status.LastData)
	assert.Equal(t, 1, dialer.dials())
}

func TestManager_MessageQueuesCharacters(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newTestManager(t, "msg", dialer, nil)
	connected(t, m)

	clock.Advance(time.Second)
	dialer.socket(0).msgs <- []byte("42π")
	step(t, m)

	assert.Equal(t, []rune{'4', '2', 'π'}, m.Queue().PopN(10))
	assert.Equal(t, clock.Now(), m.lastData, "data refreshes liveness")
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.FeedCharacters.WithLabelValues("msg")))
}

func TestManager_HiddenDropsMessages(t *testing.T) {
	dialer := &fakeDialer{}
	vis := NewToggle(false)
	m, clock := newTestManager(t, "hidden", dialer, vis)
	connected(t, m)
	openedAt := clock.Now()

	clock.Advance(time.Second)
	dialer.socket(0).msgs <- []byte("123")
	step(t, m)

	assert.Zero(t, m.Queue().Len(), "hidden messages never reach the queue")
	assert.Equal(t, openedAt, m.lastData, "hidden messages do not refresh liveness")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FeedMessages.WithLabelValues("hidden", "dropped")))

	vis.Set(true)
	dialer.socket(0).msgs <- []byte("9")
	step(t, m)
	assert.Equal(t, 1, m.Queue().Len())
}

func TestManager_StaleConnectionReconnects(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newTestManager(t, "stale", dialer, nil)
	connected(t, m)

	clock.Advance(5000 * time.Millisecond)
	m.checkLiveness()
	assert.Equal(t, StateConnected, m.Status().State, "exactly at the threshold is still alive")
	assert.Equal(t, 1, dialer.dials())

	clock.Advance(time.Millisecond)
	m.checkLiveness()
	assert.Equal(t, StateConnecting, m.Status().State)
	assert.True(t, m.lastData.IsZero())
	assert.True(t, dialer.socket(0).isClosed(), "stale socket is closed")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FeedReconnects.WithLabelValues("stale", "stale")))

	// The new dial opens and the old reader reports its close, in either order
	for range 2 {
		step(t, m)
	}
	assert.Equal(t, StateConnected, m.Status().State)
	assert.Equal(t, 2, dialer.dials())
	assert.Nil(t, m.reconnect, "superseded close must not schedule a reconnect")
}

func TestManager_LivenessIgnoredWithoutTimestamp(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("refused")}
	m, clock := newTestManager(t, "notimestamp", dialer, nil)

	m.connect()
	step(t, m)
	require.Equal(t, StateDisconnected, m.Status().State)

	clock.Advance(time.Minute)
	m.stopReconnect()
	m.checkLiveness()
	assert.Equal(t, StateDisconnected, m.Status().State)
}

func TestManager_SupersededCloseIgnored(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newTestManager(t, "superseded", dialer, nil)
	connected(t, m)
	first := m.current

	m.connect()
	second := m.current
	require.NotSame(t, first, second)

	m.handleClosed(first, io.EOF)
	assert.Equal(t, StateConnecting, m.Status().State)
	assert.Nil(t, m.reconnect)
	assert.Same(t, second, m.current)
}

func TestManager_SupersededOpenClosesSocket(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newTestManager(t, "lateopen", dialer, nil)

	m.connect()
	first := m.current
	m.connect()

	late := newFakeSocket()
	m.handleOpen(first, late)
	assert.True(t, late.isClosed())
	assert.Equal(t, StateConnecting, m.Status().State)
}

func TestManager_CloseSchedulesSingleReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newTestManager(t, "reconnect", dialer, nil)
	connected(t, m)

	close(dialer.socket(0).msgs)
	ev := step(t, m)
	require.Equal(t, eventClosed, ev.kind)
	assert.Equal(t, StateDisconnected, m.Status().State)
	assert.Equal(t, "disconnected, reconnecting...", m.Status().Label)
	require.NotNil(t, m.reconnect)

	seq := m.reconnectSeq
	m.scheduleReconnect()
	m.scheduleReconnect()
	assert.Equal(t, seq, m.reconnectSeq, "at most one reconnect pending")

	clock.Advance(1999 * time.Millisecond)
	assertNoEvent(t, m)

	clock.Advance(time.Millisecond)
	ev = step(t, m)
	require.Equal(t, eventReconnect, ev.kind)
	assert.Equal(t, StateConnecting, m.Status().State)

	ev = step(t, m)
	require.Equal(t, eventOpen, ev.kind)
	assert.Equal(t, StateConnected, m.Status().State)
	assert.Equal(t, 2, dialer.dials())
	assert.Equal(t, uint64(1), m.Status().Reconnects)
}

func TestManager_DialFailureRetries(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	m, clock := newTestManager(t, "dialfail", dialer, nil)

	m.connect()
	ev := step(t, m)
	require.Equal(t, eventClosed, ev.kind)
	assert.Equal(t, StateDisconnected, m.Status().State)

	dialer.mu.Lock()
	dialer.err = nil
	dialer.mu.Unlock()

	clock.Advance(2 * time.Second)
	step(t, m)
	step(t, m)
	assert.Equal(t, StateConnected, m.Status().State)
}

func TestManager_ConnectCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("refused")}
	m, clock := newTestManager(t, "manual", dialer, nil)

	m.connect()
	step(t, m)
	require.NotNil(t, m.reconnect)
	staleSeq := m.reconnectSeq

	dialer.mu.Lock()
	dialer.err = nil
	dialer.mu.Unlock()

	m.connect()
	assert.Nil(t, m.reconnect)
	step(t, m)
	require.Equal(t, StateConnected, m.Status().State)

	clock.Advance(2 * time.Second)
	assertNoEvent(t, m)

	// A reconnect that fired before being stopped is ignored
	m.handleReconnect(staleSeq)
	assert.Equal(t, StateConnected, m.Status().State)
	assert.Equal(t, 1, dialer.dials())
}

func TestManager_ConnectFromOtherGoroutine(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := newTestManager(t, "manual", dialer, nil)
	connected(t, m)

	go m.Connect()
	ev := step(t, m)
	require.Equal(t, eventConnect, ev.kind)
	assert.Equal(t, StateConnecting, m.Status().State)
	assert.True(t, dialer.socket(0).isClosed(), "old socket is dropped")

	// The dropped socket's close report may arrive before the new open
	for i := 0; i < 2 && m.Status().State != StateConnected; i++ {
		step(t, m)
	}
	assert.Equal(t, StateConnected, m.Status().State)
	assert.Equal(t, 2, dialer.dials())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	dialer := &fakeDialer{}
	m, clock := newTestManager(t, "run", dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return m.Status().Connected()
	}, time.Second, 5*time.Millisecond)

	// Liveness ticker drives a stale reconnect with no socket events
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(6 * time.Second)
	assert.Eventually(t, func() bool {
		return dialer.dials() == 2 && m.Status().Connected()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not return")
	}
	assert.True(t, dialer.socket(1).isClosed())
	assert.Equal(t, StateDisconnected, m.Status().State)
}
