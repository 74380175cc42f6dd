package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/smartq/internal/observability"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedMailerConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // trial sends allowed while half-open
}

// ProtectedMailer bounds each send with a timeout and stops calling a
// failing provider until the cooldown passes.
type ProtectedMailer struct {
	inner Mailer
	cfg   ProtectedMailerConfig
	prom  *observability.Prom
	now   func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedMailer(inner Mailer, cfg ProtectedMailerConfig, prom *observability.Prom) *ProtectedMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedMailer{
		inner: inner,
		cfg:   cfg,
		prom:  prom,
		now:   time.Now,
		state: stateClosed,
	}
}

func (m *ProtectedMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.allowRequest() {
		m.observe("circuit_open")
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	err := m.inner.Send(sendCtx, to, subject, body)
	m.afterRequest(err)

	if err != nil {
		m.observe("failed")
		return err
	}
	m.observe("sent")
	return nil
}

func (m *ProtectedMailer) observe(result string) {
	if m.prom != nil {
		m.prom.ObserveMail(result)
	}
}

func (m *ProtectedMailer) allowRequest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateOpen:
		if m.now().Sub(m.openedAt) < m.cfg.Cooldown {
			return false
		}
		m.state = stateHalfOpen
		m.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if m.halfOpenInFlight >= m.cfg.HalfOpenMaxCalls {
			return false
		}
		m.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (m *ProtectedMailer) afterRequest(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateHalfOpen && m.halfOpenInFlight > 0 {
		m.halfOpenInFlight--
	}

	if err == nil {
		m.consecutiveFailures = 0
		m.state = stateClosed
		return
	}

	m.consecutiveFailures++

	// a failed trial reopens immediately
	if m.state == stateHalfOpen || m.consecutiveFailures >= m.cfg.FailureThreshold {
		m.state = stateOpen
		m.openedAt = m.now()
	}
}
