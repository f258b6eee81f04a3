// internal/ledger/ledger.go
package ledger

import (
	"context"
	"time"

	"nsa-scheduler/internal/common/logger"
)

// Entry records one repair order for which an appointment was already created.
type Entry struct {
	RONumber      string    `json:"roNumber"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	DealerID      string    `json:"dealerId"`
	CreatedAt     time.Time `json:"createdAt"`
	AppointmentID string    `json:"appointmentId"`
}

// Store is the persisted collection behind the ledger: read entirely at run
// start, written entirely (overwrite) at run end.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Ledger is the in-memory dedup ledger for one run. At most one entry exists
// per RO number; a re-add replaces the prior entry.
type Ledger struct {
	store   Store
	logger  logger.Logger
	entries map[string]Entry
	order   []string
	now     func() time.Time
}

func New(store Store, log logger.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  log,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Load reads the persisted store. Any read failure degrades to an empty
// ledger with a warning; it never fails the run.
func (l *Ledger) Load(ctx context.Context) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Warn("ledger load failed, starting with empty ledger", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	for _, e := range entries {
		if _, exists := l.entries[e.RONumber]; !exists {
			l.order = append(l.order, e.RONumber)
		}
		l.entries[e.RONumber] = e
	}
}

// IsDuplicate returns the prior entry for the RO number, if any. No side effect.
func (l *Ledger) IsDuplicate(roNumber string) (*Entry, bool) {
	e, ok := l.entries[roNumber]
	if !ok {
		return nil, false
	}
	return &e, true
}

// Record upserts an entry for the RO number with the current timestamp. A
// prior entry for the same number is replaced, not duplicated.
func (l *Ledger) Record(roNumber, firstName, lastName, dealerID, appointmentID string) {
	if _, exists := l.entries[roNumber]; !exists {
		l.order = append(l.order, roNumber)
	}
	l.entries[roNumber] = Entry{
		RONumber:      roNumber,
		FirstName:     firstName,
		LastName:      lastName,
		DealerID:      dealerID,
		CreatedAt:     l.now().UTC(),
		AppointmentID: appointmentID,
	}
}

// Save flushes the full entry set to the store, overwriting prior content.
func (l *Ledger) Save(ctx context.Context) error {
	return l.store.Save(ctx, l.Entries())
}

// Entries returns the ledger content in first-recorded order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, ro := range l.order {
		out = append(out, l.entries[ro])
	}
	return out
}

// Len returns the number of distinct RO numbers recorded.
func (l *Ledger) Len() int {
	return len(l.entries)
}
