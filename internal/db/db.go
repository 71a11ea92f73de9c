package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// MessageInsertedChannel is the NOTIFY channel fed by the messages insert trigger.
const MessageInsertedChannel = "message_inserted"

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("database migrations applied")

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS connections (
            id TEXT PRIMARY KEY,
            meeting_id TEXT NOT NULL DEFAULT '',
            participant_id TEXT NOT NULL DEFAULT '',
            connected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            active BOOLEAN NOT NULL DEFAULT TRUE
        );`,
		`CREATE INDEX IF NOT EXISTS connections_meeting_active_idx ON connections (meeting_id) WHERE active;`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            meeting_id TEXT NOT NULL,
            participant_id TEXT NOT NULL,
            content VARCHAR(500) NOT NULL,
            like_count INT NOT NULL DEFAULT 0,
            reported_count INT NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_meeting_created_idx ON messages (meeting_id, created_at);`,
		`CREATE OR REPLACE FUNCTION notify_message_inserted() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('` + MessageInsertedChannel + `', json_build_object(
                'Id', NEW.id,
                'MeetingId', NEW.meeting_id,
                'ParticipantId', NEW.participant_id,
                'Content', NEW.content,
                'CreatedAt', to_char(NEW.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"')
            )::text);
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS messages_notify_insert ON messages;`,
		`CREATE TRIGGER messages_notify_insert AFTER INSERT ON messages
            FOR EACH ROW EXECUTE FUNCTION notify_message_inserted();`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
