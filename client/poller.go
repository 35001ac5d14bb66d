package client

import (
	"context"
	"sync"
	"time"

	"github.com/tableside/venue-app/models"
)

const (
	// DefaultPollInterval matches the refresh cadence of every view. The
	// staleness window across clients equals this period.
	DefaultPollInterval = 30 * time.Second
	// DefaultErrorDisplay is how long a transient fetch error stays
	// visible before clearing itself.
	DefaultErrorDisplay = 3 * time.Second
)

// Snapshot is the view's current copy of server state. It is replaced
// wholesale by each successful fetch and never merged or patched.
type Snapshot struct {
	Orders []models.Order
	Menu   []models.MenuItem
}

// MenuItem satisfies MenuProvider for the cart.
func (s Snapshot) MenuItem(id uint) (models.MenuItem, bool) {
	for _, item := range s.Menu {
		if item.ID == id {
			return item, true
		}
	}
	return models.MenuItem{}, false
}

// Poller runs the per-view refresh loop. One poller exists per mounted view;
// Start ties it to the view's lifetime and Stop must be called on unmount so
// no timer outlives its view.
//
// Orders and menu are fetched independently each tick and may complete out
// of order; whichever response completes last wins the snapshot. A failed
// fetch leaves the previous snapshot untouched and surfaces a transient
// error that clears itself. A response that completes after Stop is
// discarded.
type Poller struct {
	API *Client

	// Interval and ErrorDisplay may be shortened before Start; zero means
	// the defaults above.
	Interval     time.Duration
	ErrorDisplay time.Duration

	// FetchMenu disables the menu refresher for views that only need
	// orders (staff dashboard order list).
	FetchMenu bool

	mu        sync.Mutex
	snapshot  Snapshot
	hasOrders bool
	hasMenu   bool
	lastErr   string
	errSeq    int
	stopped   bool
	stopChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPoller(api *Client, fetchMenu bool) *Poller {
	return &Poller{
		API:       api,
		FetchMenu: fetchMenu,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the refresh loop: one refresh immediately on mount, then one
// per interval.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		interval := p.Interval
		if interval <= 0 {
			interval = DefaultPollInterval
		}

		go func() {
			p.refresh()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p.refresh()
				case <-p.stopChan:
					return
				}
			}
		}()
	})
}

// Stop cancels the poller's own timer only. In-flight fetches are not
// interrupted; their late responses are ignored instead.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.stopChan)
	})
}

// refresh dispatches one independent fetch per resource the view needs. No
// cross-resource ordering is promised.
func (p *Poller) refresh() {
	ctx := context.Background()

	go func() {
		orders, err := p.API.GetOrders(ctx)
		if err != nil {
			p.reportError("Failed to load orders")
			return
		}
		p.applyOrders(orders)
	}()

	if p.FetchMenu {
		go func() {
			menu, err := p.API.GetMenu(ctx)
			if err != nil {
				p.reportError("Failed to load menu")
				return
			}
			p.applyMenu(menu)
		}()
	}
}

func (p *Poller) applyOrders(orders []models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.snapshot.Orders = orders
	p.hasOrders = true
}

func (p *Poller) applyMenu(menu []models.MenuItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.snapshot.Menu = menu
	p.hasMenu = true
}

// reportError records a transient, user-visible error and arms its
// self-clear. A newer error re-arms the clear; an old timer firing late must
// not wipe a fresher message, hence the sequence check.
func (p *Poller) reportError(msg string) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.lastErr = msg
	p.errSeq++
	seq := p.errSeq
	p.mu.Unlock()

	display := p.ErrorDisplay
	if display <= 0 {
		display = DefaultErrorDisplay
	}
	time.AfterFunc(display, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.errSeq == seq {
			p.lastErr = ""
		}
	})
}

// Snapshot returns the current view state. Ready is false until the first
// successful orders fetch, so views can distinguish "empty" from "not loaded
// yet".
func (p *Poller) Snapshot() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready := p.hasOrders && (!p.FetchMenu || p.hasMenu)
	return p.snapshot, ready
}

// TransientError returns the currently displayed fetch error, if any.
func (p *Poller) TransientError() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr, p.lastErr != ""
}
