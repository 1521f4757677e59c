package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Schema creates the three sync tables. Every statement is idempotent so it
// runs both from the migrator and from the store's lazy provisioning.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS quiz_sessions (
		id SERIAL PRIMARY KEY,
		quiz_id VARCHAR(255) NOT NULL UNIQUE,
		quiz_type VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		status VARCHAR(50) NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		device_id VARCHAR(255) NOT NULL,
		quiz_id VARCHAR(255) NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		browser VARCHAR(512),
		status VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_quiz_device ON participants (quiz_id, device_id)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		id SERIAL PRIMARY KEY,
		quiz_id VARCHAR(255) NOT NULL UNIQUE,
		quiz_type VARCHAR(50) NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		participants JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
}

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range Schema {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quiz_results, participants, quiz_sessions`)
			return err
		},
	)
}
