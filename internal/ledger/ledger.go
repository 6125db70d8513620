package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/metrics"
	"github.com/pokedexlab/orchestrator/internal/models"
)

// Store persists appended steps. Persistence failures are logged, never
// surfaced: the in-memory ledger stays authoritative for the run.
type Store interface {
	SaveStep(ctx context.Context, runID string, step models.ResearchStep) error
}

// Ledger is the append-only record of every phase attempt in one run.
// Existing entries are never mutated or removed. Writes are serialized, like
// the context scratchpad, so a concurrent worker pool needs no extra locking.
type Ledger struct {
	runID  string
	store  Store
	logger *zap.Logger

	mu    sync.Mutex
	steps []models.ResearchStep
}

// New creates a ledger for one run. store may be nil for in-memory only.
func New(runID string, store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{runID: runID, store: store, logger: logger}
}

// Append records a step. Each attempt is appended exactly once.
func (l *Ledger) Append(ctx context.Context, step models.ResearchStep) {
	l.mu.Lock()
	l.steps = append(l.steps, step)
	l.mu.Unlock()

	status := "ok"
	if !step.Success {
		status = "error"
	}
	metrics.StepsRecorded.WithLabelValues(string(step.Kind), status).Inc()

	if l.store != nil {
		if err := l.store.SaveStep(ctx, l.runID, step); err != nil {
			l.logger.Warn("failed to persist research step",
				zap.String("run_id", l.runID),
				zap.String("step_type", string(step.Kind)),
				zap.Error(err))
		}
	}
}

// Steps returns a copy of the recorded steps in append order.
func (l *Ledger) Steps() []models.ResearchStep {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ResearchStep, len(l.steps))
	copy(out, l.steps)
	return out
}

// Len returns the number of recorded steps.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Sources flattens every step's source list and removes duplicates. Order is
// not guaranteed beyond first occurrence.
func (l *Ledger) Sources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, step := range l.steps {
		for _, src := range step.Sources {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			out = append(out, src)
		}
	}
	return out
}
