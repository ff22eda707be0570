package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
)

// NewImportCmd loads quizzes from a YAML file into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert quizzes from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a list of quizzes (defaults to quiz.file)")
	return cmd
}

func runImport(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Quiz.File
	}
	if file == "" {
		return fmt.Errorf("no quiz file given")
	}
	quizzes, err := readQuizzesForImport(file, config.IntOr(cfg.Quiz.MaxDurationSeconds, domain.DefaultMaxDurationSeconds))
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	n, err := postgres.NewQuizWriter(db).Upsert(ctx, quizzes)
	if err != nil {
		return err
	}
	log.Printf("imported %d quizzes from %s", n, file)
	return nil
}

// readQuizzesForImport rejects the whole file if any quiz is malformed.
func readQuizzesForImport(file string, maxDurationSeconds int) ([]domain.Quiz, error) {
	quizzes, err := memory.ReadQuizFile(file)
	if err != nil {
		return nil, err
	}
	for _, quiz := range quizzes {
		if err := quiz.Validate(maxDurationSeconds); err != nil {
			return nil, fmt.Errorf("quiz %s: %w", quiz.ID, err)
		}
	}
	return quizzes, nil
}
