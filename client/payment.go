package client

import (
	"errors"
	"sync"
	"time"

	"github.com/tableside/venue-app/models"
)

// DefaultPaymentBudget is the countdown granted to complete a payment after
// placing an order.
const DefaultPaymentBudget = 5 * time.Minute

var (
	// ErrSessionClosed rejects Pay on a session that already expired, was
	// cancelled or was paid.
	ErrSessionClosed = errors.New("payment session closed")
	// ErrServiceOrder rejects opening a payment session for a zero-priced
	// service request.
	ErrServiceOrder = errors.New("service requests have nothing to pay")
)

// PaymentOutcome is how a session ended.
type PaymentOutcome int

const (
	OutcomePending PaymentOutcome = iota
	OutcomePaid
	OutcomeCancelled
	OutcomeExpired
)

// PaymentSession is the time-boxed payment prompt bound to one freshly
// created order. It is a UI-level process only: expiry, cancellation and
// even Pay never touch the order's status. The order stays whatever the
// transition engine last recorded, and completion remains the staff-driven
// Accepted -> Completed path.
type PaymentSession struct {
	Order models.Order

	// Tick may be shortened before Start for tests; zero means one second.
	Tick time.Duration

	mu        sync.Mutex
	remaining int
	outcome   PaymentOutcome
	done      chan struct{}
	stopChan  chan struct{}
	started   bool
}

func NewPaymentSession(order models.Order, budget time.Duration) *PaymentSession {
	if budget <= 0 {
		budget = DefaultPaymentBudget
	}
	return &PaymentSession{
		Order:     order,
		remaining: int(budget / time.Second),
		done:      make(chan struct{}),
		stopChan:  make(chan struct{}),
	}
}

// Start begins the countdown. Reaching zero closes the session exactly like
// an explicit Cancel.
func (s *PaymentSession) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	tick := s.Tick
	if tick <= 0 {
		tick = time.Second
	}
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.decrement() {
					return
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// decrement reports whether the countdown finished.
func (s *PaymentSession) decrement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomePending {
		return true
	}
	s.remaining--
	if s.remaining > 0 {
		return false
	}
	s.remaining = 0
	s.closeLocked(OutcomeExpired)
	return true
}

// Remaining returns the seconds left on the countdown.
func (s *PaymentSession) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Pay simulates payment collection: it signals success to the caller and
// closes the session. It deliberately does not advance the order status.
func (s *PaymentSession) Pay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomePending {
		return ErrSessionClosed
	}
	s.closeLocked(OutcomePaid)
	return nil
}

// Cancel closes the session identically to expiry. Calling it on an already
// closed session is a no-op.
func (s *PaymentSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomePending {
		return
	}
	s.closeLocked(OutcomeCancelled)
}

func (s *PaymentSession) closeLocked(outcome PaymentOutcome) {
	s.outcome = outcome
	close(s.done)
	// Stop the countdown goroutine if it is running.
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

// Outcome returns how the session ended; closed is false while the
// countdown is still running.
func (s *PaymentSession) Outcome() (PaymentOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.outcome != OutcomePending
}

// Done is closed when the session ends, however it ends.
func (s *PaymentSession) Done() <-chan struct{} {
	return s.done
}

// PaymentPrompt enforces the one-session-per-view rule: opening a session
// while one is active replaces it rather than stacking countdowns.
type PaymentPrompt struct {
	mu     sync.Mutex
	active *PaymentSession
}

// Open starts a session for a just-created order. Service requests are
// never payment candidates.
func (p *PaymentPrompt) Open(order models.Order, budget time.Duration) (*PaymentSession, error) {
	if order.IsService {
		return nil, ErrServiceOrder
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.Cancel()
	}
	session := NewPaymentSession(order, budget)
	session.Start()
	p.active = session
	return session, nil
}

// Active returns the running session, or nil when none is open.
func (p *PaymentPrompt) Active() *PaymentSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	if _, closed := p.active.Outcome(); closed {
		return nil
	}
	return p.active
}

// Close cancels whatever session is open; called on view teardown.
func (p *PaymentPrompt) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.Cancel()
		p.active = nil
	}
}
