package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tableside/venue-app/models"
)

// fakeAPI serves /orders and /menu and can be flipped into failure mode.
type fakeAPI struct {
	mu     sync.Mutex
	orders []models.Order
	menu   []models.MenuItem
	fail   bool
}

func (f *fakeAPI) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeAPI) setOrders(orders []models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case "/orders":
			json.NewEncoder(w).Encode(f.orders)
		case "/menu":
			json.NewEncoder(w).Encode(f.menu)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestPoller(t *testing.T, fake *fakeAPI) (*Poller, func()) {
	server := httptest.NewServer(fake.handler())
	poller := NewPoller(New(server.URL), true)
	poller.Interval = 20 * time.Millisecond
	poller.ErrorDisplay = 50 * time.Millisecond
	return poller, func() {
		poller.Stop()
		server.Close()
	}
}

func TestPollerReplacesSnapshotWholesale(t *testing.T) {
	fake := &fakeAPI{
		orders: []models.Order{{ID: 1, Status: models.StatusPending}},
		menu:   []models.MenuItem{{ID: 1, Name: "Burger", Price: 5}},
	}
	poller, teardown := newTestPoller(t, fake)
	defer teardown()

	poller.Start()
	assert.Eventually(t, func() bool {
		_, ready := poller.Snapshot()
		return ready
	}, time.Second, 5*time.Millisecond)

	snap, _ := poller.Snapshot()
	assert.Len(t, snap.Orders, 1)
	assert.Len(t, snap.Menu, 1)

	fake.setOrders([]models.Order{
		{ID: 1, Status: models.StatusAccepted},
		{ID: 2, Status: models.StatusPending},
	})
	assert.Eventually(t, func() bool {
		snap, _ := poller.Snapshot()
		return len(snap.Orders) == 2
	}, time.Second, 5*time.Millisecond)

	snap, _ = poller.Snapshot()
	assert.Equal(t, models.StatusAccepted, snap.Orders[0].Status)
}

func TestPollerKeepsSnapshotOnFailure(t *testing.T) {
	fake := &fakeAPI{
		orders: []models.Order{{ID: 1, Status: models.StatusPending}},
	}
	poller, teardown := newTestPoller(t, fake)
	defer teardown()

	poller.Start()
	assert.Eventually(t, func() bool {
		snap, _ := poller.Snapshot()
		return len(snap.Orders) == 1
	}, time.Second, 5*time.Millisecond)

	fake.setFail(true)

	// A failed tick surfaces a transient error...
	assert.Eventually(t, func() bool {
		_, shown := poller.TransientError()
		return shown
	}, time.Second, 5*time.Millisecond)

	// ...but the previous snapshot stays rendered, not cleared.
	snap, _ := poller.Snapshot()
	assert.Len(t, snap.Orders, 1)
	assert.Equal(t, uint(1), snap.Orders[0].ID)
}

func TestPollerTransientErrorSelfClears(t *testing.T) {
	fake := &fakeAPI{fail: true}
	poller, teardown := newTestPoller(t, fake)
	defer teardown()

	poller.Start()
	assert.Eventually(t, func() bool {
		_, shown := poller.TransientError()
		return shown
	}, time.Second, 5*time.Millisecond)

	// Recover the backend so no new error re-arms the banner, then watch
	// the existing one clear itself within the display window.
	fake.setFail(false)
	assert.Eventually(t, func() bool {
		_, shown := poller.TransientError()
		return !shown
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStopPreventsLateUpdates(t *testing.T) {
	fake := &fakeAPI{
		orders: []models.Order{{ID: 1, Status: models.StatusPending}},
	}
	poller, teardown := newTestPoller(t, fake)
	defer teardown()

	poller.Start()
	assert.Eventually(t, func() bool {
		snap, _ := poller.Snapshot()
		return len(snap.Orders) == 1
	}, time.Second, 5*time.Millisecond)

	poller.Stop()
	fake.setOrders([]models.Order{{ID: 1}, {ID: 2}, {ID: 3}})

	// No tick fires after Stop, and any response landing late is dropped.
	time.Sleep(100 * time.Millisecond)
	snap, _ := poller.Snapshot()
	assert.Len(t, snap.Orders, 1)

	// Stop is safe to call twice (unmount races teardown).
	poller.Stop()
}

func TestSnapshotMenuLookup(t *testing.T) {
	snap := Snapshot{Menu: []models.MenuItem{{ID: 7, Name: "Cola"}}}

	item, ok := snap.MenuItem(7)
	assert.True(t, ok)
	assert.Equal(t, "Cola", item.Name)

	_, ok = snap.MenuItem(8)
	assert.False(t, ok)
}
