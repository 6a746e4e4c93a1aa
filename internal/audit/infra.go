package audit

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          BIGSERIAL PRIMARY KEY,
	sender_id   TEXT NOT NULL,
	message_id  TEXT,
	direction   TEXT NOT NULL,
	text        TEXT NOT NULL,
	stage       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_id, created_at);

CREATE TABLE IF NOT EXISTS leads (
	id          BIGSERIAL PRIMARY KEY,
	sender_id   TEXT NOT NULL,
	company     TEXT,
	city        TEXT,
	last_text   TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type repo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create audit schema")
	}
	return nil
}

func (r *repo) SaveMessage(ctx context.Context, msg Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, message_id, direction, text, stage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		msg.SenderID,
		nullable(msg.MessageID),
		string(msg.Direction),
		msg.Text,
		nullable(msg.Stage),
		msg.CreatedAt,
	)
	return errors.Wrap(err, "insert message")
}

func (r *repo) SaveLead(ctx context.Context, lead Lead) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (sender_id, company, city, last_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		lead.SenderID,
		nullable(lead.Company),
		nullable(lead.City),
		nullable(lead.LastText),
		lead.CreatedAt,
	)
	return errors.Wrap(err, "insert lead")
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
