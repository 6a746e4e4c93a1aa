// Package audit optionally records conversation turns and captured leads.
// Nothing in the reply path depends on it succeeding.
package audit

import (
	"context"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type Message struct {
	SenderID  string
	MessageID string
	Direction Direction
	Text      string
	Stage     string
	CreatedAt time.Time
}

type Lead struct {
	SenderID  string
	Company   string
	City      string
	LastText  string
	CreatedAt time.Time
}

// Repo persists audit records. Callers log failures and carry on.
type Repo interface {
	SaveMessage(ctx context.Context, msg Message) error
	SaveLead(ctx context.Context, lead Lead) error
}

// NopRepo is used when no database is configured.
type NopRepo struct{}

func (NopRepo) SaveMessage(context.Context, Message) error { return nil }
func (NopRepo) SaveLead(context.Context, Lead) error       { return nil }
