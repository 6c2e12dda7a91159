package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_quiz_tables.sql
var createQuizTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createQuizTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS quiz_rewards;
				DROP TABLE IF EXISTS quiz_answers;
				DROP TABLE IF EXISTS quiz_question_options;
				DROP TABLE IF EXISTS quiz_questions;
				DROP TABLE IF EXISTS users;
			`)
			return err
		},
	)
}
