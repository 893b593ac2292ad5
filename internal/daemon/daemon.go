package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"surety_ledger/internal/accounting"
	"surety_ledger/internal/config"
	"surety_ledger/internal/ledger"
	"surety_ledger/internal/scheduler"
	"surety_ledger/internal/store"
	"surety_ledger/internal/tasks"
)

// Daemon hosts the ledger: it restores the last checkpoint from the store (or
// bootstraps a fresh ledger from configuration), checkpoints it on an
// interval, and hands the ledger to the embedding oracle/app layer.
type Daemon struct {
	ctx          context.Context
	cancel       context.CancelFunc
	scheduler    *scheduler.Scheduler
	db           *store.DB
	ledger       *ledger.Ledger
	checkpointer *tasks.Checkpointer
	done         chan struct{}
}

// New creates a new daemon instance. The transfer hook performs payout value
// transfers; passing nil installs a hook that only logs the payout, for
// deployments where settlement happens outside the process.
func New(cfg *config.Config, transfer ledger.TransferFunc) (*Daemon, error) {
	if transfer == nil {
		transfer = logTransfer
	}

	ctx, cancel := context.WithCancel(context.Background())

	db, err := store.New(cfg.DBPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	repo := db.LedgerRepository()

	l, err := restoreOrBootstrap(repo, cfg, transfer)
	if err != nil {
		db.Close()
		cancel()
		return nil, err
	}

	sched := scheduler.New(ctx)
	interval := time.Duration(cfg.CheckpointInterval) * time.Second
	checkpointer := tasks.NewCheckpointerWithInterval(l, repo, interval)
	sched.AddTask(checkpointer)

	return &Daemon{
		ctx:          ctx,
		cancel:       cancel,
		scheduler:    sched,
		db:           db,
		ledger:       l,
		checkpointer: checkpointer,
		done:         make(chan struct{}),
	}, nil
}

// restoreOrBootstrap loads the last checkpoint or creates a fresh ledger with
// the configured owner pre-registered.
func restoreOrBootstrap(repo store.LedgerRepository, cfg *config.Config, transfer ledger.TransferFunc) (*ledger.Ledger, error) {
	snap, err := repo.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if snap == nil {
		slog.Info("No checkpoint found, bootstrapping ledger", "owner", cfg.Owner)
		l, err := ledger.New(ledger.Identity(cfg.Owner), cfg.LedgerParams(), transfer)
		if err != nil {
			return nil, fmt.Errorf("failed to bootstrap ledger: %w", err)
		}
		return l, nil
	}

	if snap.Owner != ledger.Identity(cfg.Owner) {
		return nil, fmt.Errorf("checkpoint owner %q does not match configured owner %q", snap.Owner, cfg.Owner)
	}

	l, err := ledger.FromSnapshot(snap, cfg.LedgerParams(), transfer)
	if err != nil {
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}
	slog.Info("Restored ledger from checkpoint",
		"seq", snap.Seq,
		"airlines", len(snap.Airlines),
		"policies", len(snap.Policies),
	)
	return l, nil
}

func logTransfer(to ledger.Identity, amount accounting.Amount) error {
	slog.Info("Payout released", "to", string(to), "amount", amount.String())
	return nil
}

// Ledger returns the hosted ledger for the embedding layer
func (d *Daemon) Ledger() *ledger.Ledger {
	return d.ledger
}

// Start begins the checkpoint schedule
func (d *Daemon) Start() error {
	slog.Info("Starting daemon")

	d.scheduler.Start()

	go func() {
		<-d.ctx.Done()
		close(d.done)
	}()

	slog.Info("Daemon started successfully")
	return nil
}

// Stop gracefully stops the daemon, writing a final checkpoint
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")
	d.cancel()
	<-d.done

	d.scheduler.Stop()

	// Final checkpoint so no committed mutation is lost on shutdown.
	if err := d.checkpointer.Run(context.Background()); err != nil {
		slog.Error("Error writing final checkpoint", "error", err)
	}

	if err := d.db.Close(); err != nil {
		slog.Error("Error closing store", "error", err)
	}

	slog.Info("Daemon stopped")
	return nil
}
