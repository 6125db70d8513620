package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS research_steps (
	run_id        TEXT NOT NULL,
	step_type     TEXT NOT NULL,
	description   TEXT NOT NULL,
	input_data    TEXT,
	output_data   TEXT,
	sources       TEXT,
	success       BOOLEAN NOT NULL,
	error_message TEXT,
	created_at    TIMESTAMP NOT NULL
)`

// SQLStore persists research steps through sqlx. The SQL is kept
// driver-agnostic so either sqlite3 (local file) or postgres works.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// Open connects to the given driver/DSN and ensures the schema exists.
func Open(driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return NewSQLStore(db, driver, logger), nil
}

// NewSQLStore wraps an existing connection. Used directly by tests.
func NewSQLStore(db *sqlx.DB, driver string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, driver: driver, logger: logger}
}

// SaveStep inserts one step row. Structured payloads are stored as JSON text.
func (s *SQLStore) SaveStep(ctx context.Context, runID string, step models.ResearchStep) error {
	input := marshalOrEmpty(step.InputData)
	output := marshalOrEmpty(step.OutputData)
	sources := strings.Join(step.Sources, "\n")

	query := s.db.Rebind(`INSERT INTO research_steps
		(run_id, step_type, description, input_data, output_data, sources, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query,
		runID, string(step.Kind), step.Description, input, output, sources,
		step.Success, step.ErrorMessage, step.Timestamp)
	if err != nil {
		return fmt.Errorf("insert research step: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func marshalOrEmpty(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
