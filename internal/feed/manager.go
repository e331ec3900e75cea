// Package feed connects to the character streams and fills the intake
// queues. Each Manager owns one connection and runs its state machine on a
// single goroutine; socket readers and timers only post events to it.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/tomz197/marquee/internal/metrics"
)

const (
	defaultReconnectDelay   = 2 * time.Second
	defaultLivenessInterval = 2 * time.Second
	defaultStaleThreshold   = 5 * time.Second
	defaultDialTimeout      = 10 * time.Second

	eventBuffer = 64
)

// Options configures a Manager.
type Options struct {
	Name       string // Label used in logs and metrics, e.g. "left"
	URL        string
	Queue      *Queue
	Dialer     Dialer
	Visibility Visibility
	Clock      clockwork.Clock
	Logger     *log.Logger

	ReconnectDelay   time.Duration
	LivenessInterval time.Duration
	StaleThreshold   time.Duration
	DialTimeout      time.Duration
}

// Status is a point-in-time view of a connection, safe to share.
type Status struct {
	Feed       string    `json:"feed"`
	URL        string    `json:"url"`
	State      ConnState `json:"state"`
	Label      string    `json:"label"`
	AttemptID  string    `json:"attempt_id,omitempty"`
	LastData   time.Time `json:"last_data,omitzero"`
	Reconnects uint64    `json:"reconnects"`
}

// Connected reports whether data is flowing.
func (s Status) Connected() bool {
	return s.State == StateConnected
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventOpen
	eventMessage
	eventClosed
	eventReconnect
)

type event struct {
	kind    eventKind
	attempt *attempt
	sock    Socket
	data    []byte
	err     error
	seq     uint64
}

// attempt is one dial and, if it succeeds, the socket it produced. Events
// carry their attempt so those from a superseded one can be told apart.
type attempt struct {
	id     uuid.UUID
	cancel context.CancelFunc
	sock   Socket
}

// Manager keeps one feed connected and appends its characters to a queue.
type Manager struct {
	name    string
	url     string
	queue   *Queue
	dialer  Dialer
	visible Visibility
	clock   clockwork.Clock
	logger  *log.Logger

	reconnectDelay   time.Duration
	livenessInterval time.Duration
	staleThreshold   time.Duration
	dialTimeout      time.Duration

	events   chan event
	done     chan struct{}
	doneOnce sync.Once

	// Owned by the event loop
	runCtx       context.Context
	state        ConnState
	current      *attempt
	lastData     time.Time // Zero when no liveness is being tracked
	reconnect    clockwork.Timer
	reconnectSeq uint64
	reconnects   uint64

	status atomic.Pointer[Status]
}

// NewManager creates a Manager in the disconnected state. Nothing is
// dialed until Run.
func NewManager(opts Options) *Manager {
	if opts.Queue == nil {
		opts.Queue = NewQueue()
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.Visibility == nil {
		opts.Visibility = AlwaysVisible
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.LivenessInterval <= 0 {
		opts.LivenessInterval = defaultLivenessInterval
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = defaultStaleThreshold
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}

	m := &Manager{
		name:             opts.Name,
		url:              opts.URL,
		queue:            opts.Queue,
		dialer:           opts.Dialer,
		visible:          opts.Visibility,
		clock:            opts.Clock,
		logger:           opts.Logger.With("feed", opts.Name),
		reconnectDelay:   opts.ReconnectDelay,
		livenessInterval: opts.LivenessInterval,
		staleThreshold:   opts.StaleThreshold,
		dialTimeout:      opts.DialTimeout,
		events:           make(chan event, eventBuffer),
		done:             make(chan struct{}),
		runCtx:           context.Background(),
		state:            StateDisconnected,
	}
	m.publish()
	metrics.FeedState.WithLabelValues(m.name).Set(float64(StateDisconnected))
	return m
}

// Name returns the feed label.
func (m *Manager) Name() string {
	return m.name
}

// Queue returns the intake queue this feed appends to.
func (m *Manager) Queue() *Queue {
	return m.queue
}

// Status returns the latest published status.
func (m *Manager) Status() Status {
	return *m.status.Load()
}

// Connect asks the event loop to start a fresh attempt, superseding any
// current one. Safe to call from any goroutine.
func (m *Manager) Connect() {
	m.post(event{kind: eventConnect})
}

// Run dials the feed and processes connection events until ctx is done.
// It must be called at most once.
func (m *Manager) Run(ctx context.Context) error {
	m.runCtx = ctx
	defer m.shutdown()

	ticker := m.clock.NewTicker(m.livenessInterval)
	defer ticker.Stop()

	m.logger.Info("Feed manager started", "url", m.url)
	m.connect()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Feed manager stopped")
			return nil
		case ev := <-m.events:
			m.handle(ev)
		case <-ticker.Chan():
			m.checkLiveness()
		}
	}
}

// post delivers an event to the loop. It reports false once the loop has
// exited.
func (m *Manager) post(ev event) bool {
	select {
	case <-m.done:
		return false
	default:
	}

	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) handle(ev event) {
	switch ev.kind {
	case eventConnect:
		m.connect()
	case eventOpen:
		m.handleOpen(ev.attempt, ev.sock)
	case eventMessage:
		m.handleMessage(ev.attempt, ev.data)
	case eventClosed:
		m.handleClosed(ev.attempt, ev.err)
	case eventReconnect:
		m.handleReconnect(ev.seq)
	}
}

// connect abandons the current attempt and dials a new one. A pending
// reconnect is cancelled since this attempt replaces it.
func (m *Manager) connect() {
	m.stopReconnect()
	m.dropCurrent()

	ctx, cancel := context.WithCancel(m.runCtx)
	a := &attempt{id: uuid.New(), cancel: cancel}
	m.current = a
	m.transition(StateConnecting)
	m.logger.Debug("Dialing feed", "attempt", a.id, "url", m.url)

	go m.dial(ctx, a)
}

func (m *Manager) dial(ctx context.Context, a *attempt) {
	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()

	sock, err := m.dialer.Dial(dialCtx, m.url)
	if err != nil {
		m.post(event{kind: eventClosed, attempt: a, err: err})
		return
	}
	if !m.post(event{kind: eventOpen, attempt: a, sock: sock}) {
		_ = sock.Close()
	}
}

func (m *Manager) read(a *attempt, sock Socket) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			m.post(event{kind: eventClosed, attempt: a, err: err})
			return
		}
		if !m.post(event{kind: eventMessage, attempt: a, data: data}) {
			return
		}
	}
}

func (m *Manager) handleOpen(a *attempt, sock Socket) {
	if a != m.current {
		m.logger.Debug("Closing socket from superseded attempt", "attempt", a.id)
		_ = sock.Close()
		return
	}

	a.sock = sock
	m.lastData = m.clock.Now()
	m.transition(StateConnected)
	m.logger.Info("Feed connected", "attempt", a.id, "url", m.url)

	go m.read(a, sock)
}

func (m *Manager) handleMessage(a *attempt, data []byte) {
	if a != m.current {
		return
	}
	if !m.visible.Visible() {
		metrics.FeedMessages.WithLabelValues(m.name, "dropped").Inc()
		return
	}

	n := m.queue.PushString(string(data))
	metrics.FeedMessages.WithLabelValues(m.name, "queued").Inc()
	metrics.FeedCharacters.WithLabelValues(m.name).Add(float64(n))

	m.lastData = m.clock.Now()
	m.publish()
}

// handleClosed covers both a failed dial and a socket that stopped reading.
// The socket is force-closed and a reconnect scheduled.
func (m *Manager) handleClosed(a *attempt, err error) {
	if a != m.current {
		m.logger.Debug("Ignoring close from superseded attempt", "attempt", a.id)
		return
	}

	switch {
	case err == nil, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		m.logger.Info("Feed closed", "attempt", a.id)
	case errors.Is(err, context.Canceled):
		m.logger.Debug("Feed dial cancelled", "attempt", a.id)
	default:
		m.logger.Warn("Feed connection failed", "attempt", a.id, "error", err)
	}

	m.dropCurrent()
	m.transition(StateDisconnected)
	m.scheduleReconnect()
}

func (m *Manager) handleReconnect(seq uint64) {
	if m.reconnect == nil || seq != m.reconnectSeq {
		return
	}
	m.reconnect = nil
	m.reconnects++
	metrics.FeedReconnects.WithLabelValues(m.name, "closed").Inc()
	m.connect()
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
func (m *Manager) scheduleReconnect() {
	if m.reconnect != nil {
		return
	}

	m.reconnectSeq++
	seq := m.reconnectSeq
	m.reconnect = m.clock.AfterFunc(m.reconnectDelay, func() {
		m.post(event{kind: eventReconnect, seq: seq})
	})
	m.logger.Debug("Reconnect scheduled", "delay", m.reconnectDelay)
}

func (m *Manager) stopReconnect() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

// checkLiveness forces a reconnect when a connection has gone silent for
// longer than the stale threshold. No close or error event is needed.
func (m *Manager) checkLiveness() {
	if m.lastData.IsZero() {
		return
	}

	silence := m.clock.Since(m.lastData)
	if silence <= m.staleThreshold {
		return
	}

	m.logger.Warn("Feed stale, reconnecting", "silence", silence.Round(time.Millisecond))
	m.lastData = time.Time{}
	m.reconnects++
	metrics.FeedReconnects.WithLabelValues(m.name, "stale").Inc()
	m.connect()
}

// dropCurrent detaches and closes the current attempt. Its reader will
// report a close that is then ignored.
func (m *Manager) dropCurrent() {
	a := m.current
	if a == nil {
		return
	}
	m.current = nil
	a.cancel()
	if a.sock != nil {
		_ = a.sock.Close()
	}
}

func (m *Manager) shutdown() {
	m.doneOnce.Do(func() { close(m.done) })
	m.stopReconnect()
	m.dropCurrent()
	if m.state != StateDisconnected {
		m.transition(StateDisconnected)
	}
}

func (m *Manager) transition(next ConnState) {
	if !m.state.CanTransition(next) {
		m.logger.Error("Invalid feed state transition", "from", m.state, "to", next)
		return
	}
	if m.state != next {
		m.logger.Debug("Feed state changed", "from", m.state, "to", next)
	}
	m.state = next
	metrics.FeedState.WithLabelValues(m.name).Set(float64(next))
	m.publish()
}

func (m *Manager) publish() {
	s := &Status{
		Feed:       m.name,
		URL:        m.url,
		State:      m.state,
		Label:      m.label(),
		LastData:   m.lastData,
		Reconnects: m.reconnects,
	}
	if m.current != nil {
		s.AttemptID = m.current.id.String()
	}
	m.status.Store(s)
}

func (m *Manager) label() string {
	if m.state == StateConnected {
		return fmt.Sprintf("streaming from %s", m.url)
	}
	return "disconnected, reconnecting..."
}
