package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-session-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string          `bun:"id,pk"`
	OwnerID   string          `bun:"owner_id"`
	Data      json.RawMessage `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at"`
}

// OpenDB opens a bun handle on the Postgres DSN.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// QuizWriter upserts quiz documents authored outside the session service.
type QuizWriter struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuizWriter(db *bun.DB) *QuizWriter {
	return &QuizWriter{db: db, now: time.Now}
}

// Upsert stores the quizzes, replacing any existing rows with the same id.
func (w *QuizWriter) Upsert(ctx context.Context, quizzes []domain.Quiz) (int, error) {
	if len(quizzes) == 0 {
		return 0, nil
	}
	rows := make([]quizRow, 0, len(quizzes))
	for _, quiz := range quizzes {
		if quiz.ID == "" {
			return 0, fmt.Errorf("quiz without id: %w", domain.ErrInvalidInput)
		}
		data, err := json.Marshal(quiz)
		if err != nil {
			return 0, fmt.Errorf("marshal quiz %s: %w", quiz.ID, err)
		}
		rows = append(rows, quizRow{ID: quiz.ID, OwnerID: quiz.OwnerID, Data: data, UpdatedAt: w.now()})
	}
	_, err := w.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("owner_id = EXCLUDED.owner_id").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert quizzes: %w", err)
	}
	return len(rows), nil
}

// SaveQuiz upserts a single quiz.
func (w *QuizWriter) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := w.Upsert(ctx, []domain.Quiz{quiz})
	return err
}
