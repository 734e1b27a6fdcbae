// Package session owns the lifecycle of the persistent, anonymously
// authenticated connection to the storefront backend. A single background
// pump drains the transport's callback queue and drives the state machine;
// callers block in EnsureReady until the session is usable and then issue
// product info lookups.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dealhound/steamdeals/internal/logger"
)

// State is the lifecycle state of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	LoggedOn
	LoggedOff
	Faulted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case LoggedOn:
		return "logged_on"
	case LoggedOff:
		return "logged_off"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrSessionFault reports that a session could not be established.
	ErrSessionFault = errors.New("session could not be established")
	// ErrNotReady reports a product info call issued outside LoggedOn.
	ErrNotReady = errors.New("session is not logged on")
)

// pumpHandle tracks one pump goroutine. Handles are never reused across
// sessions; a fresh connect gets a fresh handle.
type pumpHandle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (p *pumpHandle) halt() {
	p.once.Do(func() { close(p.stop) })
}

// Manager drives the session state machine over an injected Transport.
// It is safe for the single pipeline flow plus its own pump goroutine; it is
// not meant for concurrent use by multiple pipeline invocations.
type Manager struct {
	transport    Transport
	pumpInterval time.Duration

	mu       sync.Mutex
	state    State
	ready    chan struct{}
	resolved bool
	pump     *pumpHandle
}

// NewManager creates a manager in the Disconnected state. pumpInterval is
// the bounded wait used when draining the transport's callback queue.
func NewManager(transport Transport, pumpInterval time.Duration) *Manager {
	if pumpInterval <= 0 {
		pumpInterval = time.Second
	}
	return &Manager{
		transport:    transport,
		pumpInterval: pumpInterval,
		state:        Disconnected,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureReady blocks until the session is logged on, the attempt fails, or
// ctx is done. Starting from Disconnected or Faulted it builds a fresh
// session: new pump, new readiness signal, nothing reused from the previous
// one.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case LoggedOn:
		return nil
	case Disconnected, Faulted:
		m.reset()
		if err := m.begin(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	if ready == nil {
		return fmt.Errorf("%w (no login attempt in flight)", ErrSessionFault)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == LoggedOn {
		return nil
	}
	return fmt.Errorf("%w (state %s)", ErrSessionFault, m.state)
}

// FetchProductInfo requests package metadata for (appID, packageID). Zero
// results, or results without the requested package, are normal outcomes the
// caller must tolerate.
func (m *Manager) FetchProductInfo(ctx context.Context, appID, packageID uint32) ([]ProductInfo, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if state != LoggedOn {
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, state)
	}

	results, err := m.transport.ProductInfo(ctx, appID, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product info for app %d package %d: %w", appID, packageID, err)
	}
	return results, nil
}

// Close releases the session: the pump is stopped and joined, the transport
// disconnected, and all per-session resources dropped so a later EnsureReady
// builds from scratch.
func (m *Manager) Close() {
	m.reset()
	m.transport.Disconnect()
	m.mu.Lock()
	m.setStateLocked(Disconnected)
	m.mu.Unlock()
	logger.Info("Session released")
}

// begin opens a fresh session attempt: Connecting state, fresh readiness
// channel, fresh pump, then the transport connect.
func (m *Manager) begin() error {
	p := &pumpHandle{stop: make(chan struct{}), done: make(chan struct{})}

	m.mu.Lock()
	m.setStateLocked(Connecting)
	m.ready = make(chan struct{})
	m.resolved = false
	m.pump = p
	m.mu.Unlock()

	go m.runPump(p)

	if err := m.transport.Connect(); err != nil {
		p.halt()
		<-p.done
		m.mu.Lock()
		m.setStateLocked(Disconnected)
		m.mu.Unlock()
		return fmt.Errorf("failed to connect transport: %w", err)
	}
	return nil
}

// reset stops and joins any previous pump and clears per-session state.
func (m *Manager) reset() {
	m.mu.Lock()
	p := m.pump
	m.pump = nil
	m.ready = nil
	m.resolved = false
	m.mu.Unlock()

	if p != nil {
		p.halt()
		<-p.done
	}
}

func (m *Manager) runPump(p *pumpHandle) {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		event, ok := m.transport.NextEvent(m.pumpInterval)
		if !ok {
			continue
		}
		m.handleEvent(p, event)
	}
}

func (m *Manager) handleEvent(p *pumpHandle, event Event) {
	switch e := event.(type) {
	case ConnectedEvent:
		logger.Info("Transport connected, logging on anonymously")
		m.transport.LogOnAnonymous()

	case LoggedOnEvent:
		m.mu.Lock()
		if e.Result == LogOnOK {
			m.setStateLocked(LoggedOn)
		} else {
			logger.Error("Anonymous login rejected: %s", e.Result)
			m.setStateLocked(Faulted)
		}
		m.resolveLocked()
		m.mu.Unlock()

	case LoggedOffEvent:
		logger.Warn("Session logged off: %s", e.Result)
		m.mu.Lock()
		m.setStateLocked(LoggedOff)
		stillConnected := m.transport.IsConnected()
		if stillConnected {
			// Self-heal: a new login attempt on the live connection.
			m.setStateLocked(Connecting)
			m.rearmLocked()
		}
		m.mu.Unlock()
		if stillConnected {
			m.transport.LogOnAnonymous()
		}

	case DisconnectedEvent:
		logger.Warn("Transport disconnected, tearing down session")
		m.mu.Lock()
		m.setStateLocked(Disconnected)
		m.resolveLocked()
		m.mu.Unlock()
		p.halt()
	}
}

func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	logger.Info("Session state: %s -> %s", m.state, next)
	m.state = next
}

// resolveLocked completes the current login attempt, waking EnsureReady.
func (m *Manager) resolveLocked() {
	if m.ready != nil && !m.resolved {
		close(m.ready)
		m.resolved = true
	}
}

// rearmLocked opens a new login attempt window after a logoff.
func (m *Manager) rearmLocked() {
	m.ready = make(chan struct{})
	m.resolved = false
}
