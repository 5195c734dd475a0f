package http

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"expensetracker/internal/draftstore"
	"expensetracker/internal/kv"
)

const draftSessionsIdle = 30 * time.Minute

// draftSessions hands out one draft store per signed-in user. Each store
// writes under "user:<id>:" so users never see each other's drafts, and
// keeps that user's debounce timers across requests.
//
// A store is only dropped once it has been idle for draftSessionsIdle and
// has no save armed, so a later store for the same user never races an
// older store's timer.
type draftSessions struct {
	kv       kv.Store
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	stores map[int64]*draftSession
}

type draftSession struct {
	store    *draftstore.Store
	lastUsed time.Time
}

func newDraftSessions(store kv.Store, debounce time.Duration, logger *slog.Logger) *draftSessions {
	return &draftSessions{
		kv:       store,
		debounce: debounce,
		logger:   logger,
		now:      time.Now,
		stores:   make(map[int64]*draftSession),
	}
}

// For returns the user's draft store, creating it on first use.
func (d *draftSessions) For(userID int64) *draftstore.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if sess, ok := d.stores[userID]; ok {
		sess.lastUsed = now
		return sess.store
	}
	st := draftstore.New(
		kv.WithPrefix(d.kv, userPrefix(userID)),
		draftstore.WithQuiescence(d.debounce),
		draftstore.WithLogger(d.logger),
	)
	d.stores[userID] = &draftSession{store: st, lastUsed: now}
	return st
}

// CleanExpired drops idle stores without a pending save and returns how
// many it dropped.
func (d *draftSessions) CleanExpired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := d.now().Add(-draftSessionsIdle)
	removed := 0
	for id, sess := range d.stores {
		if sess.lastUsed.After(cutoff) || sess.store.HasPending() {
			continue
		}
		delete(d.stores, id)
		removed++
	}
	return removed
}

// Size returns the number of live stores.
func (d *draftSessions) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stores)
}

func userPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}
