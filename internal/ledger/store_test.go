package ledger

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/models"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "sqlmock"), "sqlmock", zap.NewNop()), mock
}

func TestSaveStepInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	step := models.NewStep(models.StepPokeAPIQuery, "fetched pikachu")
	step.Sources = []string{"https://pokeapi.co/api/v2/pokemon/pikachu"}
	step.InputData = map[string]interface{}{"name": "pikachu"}
	step.OutputData = map[string]interface{}{"id": 25}

	mock.ExpectExec("INSERT INTO research_steps").
		WithArgs("run-1", "pokeapi_query", "fetched pikachu",
			`{"name":"pikachu"}`, `{"id":25}`,
			"https://pokeapi.co/api/v2/pokemon/pikachu",
			true, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveStep(context.Background(), "run-1", step))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStepFailedStep(t *testing.T) {
	store, mock := newMockStore(t)

	step := models.FailedStep(models.StepAnalysis, "analysis broke", assert.AnError)

	mock.ExpectExec("INSERT INTO research_steps").
		WithArgs("run-2", "analysis", "analysis broke",
			"", "", "", false, step.ErrorMessage, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveStep(context.Background(), "run-2", step))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStepSurfacesError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO research_steps").WillReturnError(assert.AnError)

	err := store.SaveStep(context.Background(), "run-3", models.NewStep(models.StepSynthesis, "s"))
	assert.Error(t, err)
}
