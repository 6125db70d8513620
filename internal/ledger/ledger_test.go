package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/models"
)

func TestAppendAndLen(t *testing.T) {
	l := New("run-1", nil, zap.NewNop())
	assert.Equal(t, 0, l.Len())

	l.Append(context.Background(), models.NewStep(models.StepClarification, "one"))
	l.Append(context.Background(), models.FailedStep(models.StepAnalysis, "two", assert.AnError))

	require.Equal(t, 2, l.Len())
	steps := l.Steps()
	assert.Equal(t, "one", steps[0].Description)
	assert.False(t, steps[1].Success)
}

func TestStepsReturnsCopy(t *testing.T) {
	l := New("run-1", nil, zap.NewNop())
	l.Append(context.Background(), models.NewStep(models.StepSynthesis, "original"))

	steps := l.Steps()
	steps[0].Description = "mutated"

	assert.Equal(t, "original", l.Steps()[0].Description)
}

func TestSourcesDeduplicated(t *testing.T) {
	l := New("run-1", nil, zap.NewNop())

	a := models.NewStep(models.StepPokeAPIQuery, "first")
	a.Sources = []string{"A", "A"}
	l.Append(context.Background(), a)

	b := models.NewStep(models.StepWebSearch, "second")
	b.Sources = []string{"B", "A"}
	l.Append(context.Background(), b)

	sources := l.Sources()
	assert.ElementsMatch(t, []string{"A", "B"}, sources)
}

func TestConcurrentAppends(t *testing.T) {
	l := New("run-1", nil, zap.NewNop())

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				step := models.NewStep(models.StepSynthesis, fmt.Sprintf("worker %d step %d", w, i))
				step.Sources = []string{fmt.Sprintf("source-%d", w)}
				l.Append(context.Background(), step)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, l.Len())
	assert.Len(t, l.Sources(), workers)
}

type countingStore struct {
	calls int
	fail  bool
}

func (s *countingStore) SaveStep(ctx context.Context, runID string, step models.ResearchStep) error {
	s.calls++
	if s.fail {
		return assert.AnError
	}
	return nil
}

func TestStorePersistenceBestEffort(t *testing.T) {
	store := &countingStore{fail: true}
	l := New("run-1", store, zap.NewNop())

	// A failing store must not lose the in-memory step.
	l.Append(context.Background(), models.NewStep(models.StepSynthesis, "step"))
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, l.Len())
}
