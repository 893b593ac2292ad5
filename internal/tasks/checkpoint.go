package tasks

import (
	"context"
	"log/slog"
	"time"

	"surety_ledger/internal/ledger"
	"surety_ledger/internal/store"
)

// Checkpointer periodically commits the ledger state to the snapshot store.
// A failed save is logged and retried on the next tick; the ledger itself is
// never blocked by persistence.
type Checkpointer struct {
	ledger   *ledger.Ledger
	repo     store.LedgerRepository
	interval time.Duration
	lastSeq  uint64
	saved    bool
}

// NewCheckpointer creates a checkpoint task with the default 5 second interval
func NewCheckpointer(l *ledger.Ledger, repo store.LedgerRepository) *Checkpointer {
	return &Checkpointer{
		ledger:   l,
		repo:     repo,
		interval: 5 * time.Second,
	}
}

// NewCheckpointerWithInterval creates a checkpoint task with a custom interval
func NewCheckpointerWithInterval(l *ledger.Ledger, repo store.LedgerRepository, interval time.Duration) *Checkpointer {
	return &Checkpointer{
		ledger:   l,
		repo:     repo,
		interval: interval,
	}
}

// Name implements scheduler.Task
func (c *Checkpointer) Name() string {
	return "ledger_checkpoint"
}

// Interval implements scheduler.Task
func (c *Checkpointer) Interval() time.Duration {
	return c.interval
}

// Run takes a snapshot and saves it, skipping the write when no mutation has
// been committed since the last successful checkpoint.
func (c *Checkpointer) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := c.ledger.Snapshot()
	if c.saved && snap.Seq == c.lastSeq {
		slog.Debug("Ledger unchanged, skipping checkpoint", "seq", snap.Seq)
		return nil
	}

	if err := c.repo.SaveSnapshot(snap); err != nil {
		return err
	}

	c.lastSeq = snap.Seq
	c.saved = true
	slog.Info("Checkpointed ledger",
		"seq", snap.Seq,
		"airlines", len(snap.Airlines),
		"policies", len(snap.Policies),
	)
	return nil
}
