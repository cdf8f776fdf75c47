package repository

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pending entry statuses.
const (
	StatusUntagged = "untagged"
	StatusTagged   = "tagged"
)

// Rule match kinds.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
)

// Transaction represents a committed ledger row.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Type        string
	Description string
	Concept     string
	Source      string
	Fingerprint string // empty for manual entries
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PendingTransaction represents a staged sync candidate. The fingerprint is
// its identity until commit assigns a permanent id.
type PendingTransaction struct {
	Fingerprint string
	Date        time.Time
	Amount      decimal.Decimal
	Type        string
	Description string
	Concept     string
	Source      string
	Mailbox     string
	MessageID   string
	Tags        []string
	Status      string
	StagedAt    time.Time
	TaggedAt    *time.Time
}

// TagRule maps a concept pattern to a set of tags.
type TagRule struct {
	ID        string
	Concept   string
	Match     string
	Tags      []string
	CreatedAt time.Time
}

// Tags are stored pipe-joined in a single column.
func joinTags(tags []string) string { return strings.Join(tags, "|") }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "|")
}

func nullableStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
