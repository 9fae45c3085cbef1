package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGC reclaims value-log space on a timer. Badger only rewrites a
// log file when the discard ratio is met, so ErrNoRewrite is the
// normal idle outcome, not a failure.
type BadgerGC struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGC(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGC {
	return &BadgerGC{db: db, log: log, interval: interval}
}

func (w *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Repeat until one pass finds nothing to rewrite.
			for {
				err := w.db.RunValueLogGC(0.5)
				if stderrors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					w.log.Warn("value log GC failed", "error", err)
					break
				}
				w.log.Debug("value log file reclaimed")
			}
		}
	}
}
