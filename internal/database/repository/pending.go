package repository

import (
	"context"
	"database/sql"
	"time"
)

// PendingRepo stores staged sync candidates keyed by fingerprint. Uniqueness
// is enforced by the primary key, so a double stage surfaces as a constraint
// violation rather than a silent overwrite.
type PendingRepo struct {
	db *sql.DB
}

func NewPendingRepo(db *sql.DB) *PendingRepo { return &PendingRepo{db: db} }

func (r *PendingRepo) Stage(ctx context.Context, p PendingTransaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO pending_transactions(
	 fingerprint, date, amount, type, description, concept, source, mailbox, message_id, tags, status, staged_at, tagged_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?);
	`, p.Fingerprint, p.Date.Format(time.DateOnly), p.Amount.String(), p.Type, p.Description,
		p.Concept, p.Source, p.Mailbox, p.MessageID, joinTags(p.Tags), p.Status, p.TaggedAt)
	return err
}

// List returns pending entries, optionally filtered by status. Entries come
// back in a stable order: date, then stage time, then fingerprint.
func (r *PendingRepo) List(ctx context.Context, status string) ([]PendingTransaction, error) {
	query := `SELECT fingerprint, date, amount, type, description, concept, source, mailbox, message_id, tags, status, staged_at, tagged_at
	FROM pending_transactions`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY date, staged_at, fingerprint`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PendingRepo) Get(ctx context.Context, fingerprint string) (*PendingTransaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT fingerprint, date, amount, type, description, concept, source, mailbox, message_id, tags, status, staged_at, tagged_at
	FROM pending_transactions WHERE fingerprint = ?`, fingerprint)
	p, err := scanPending(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PendingRepo) Exists(ctx context.Context, fingerprint string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM pending_transactions WHERE fingerprint = ?`, fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetTags records the matched tags and advances the entry to tagged.
func (r *PendingRepo) SetTags(ctx context.Context, fingerprint string, tags []string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE pending_transactions
	SET tags = ?, status = ?, tagged_at = CURRENT_TIMESTAMP
	WHERE fingerprint = ?`, joinTags(tags), StatusTagged, fingerprint)
	return err
}

func (r *PendingRepo) Delete(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_transactions WHERE fingerprint = ?`, fingerprint)
	return err
}

// ConceptCount is one distinct concept over the untagged set.
type ConceptCount struct {
	Concept string
	Count   int
}

// Concepts returns the distinct concepts of untagged entries, sorted.
func (r *PendingRepo) Concepts(ctx context.Context) ([]ConceptCount, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT concept, COUNT(*)
	FROM pending_transactions
	WHERE status = ?
	GROUP BY concept
	ORDER BY concept`, StatusUntagged)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConceptCount
	for rows.Next() {
		var c ConceptCount
		if err := rows.Scan(&c.Concept, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanPending(row scanner) (PendingTransaction, error) {
	var p PendingTransaction
	var day, amount, tags string
	var taggedAt sql.NullTime
	if err := row.Scan(&p.Fingerprint, &day, &amount, &p.Type, &p.Description, &p.Concept,
		&p.Source, &p.Mailbox, &p.MessageID, &tags, &p.Status, &p.StagedAt, &taggedAt); err != nil {
		return PendingTransaction{}, err
	}
	var err error
	if p.Date, err = parseDay(day); err != nil {
		return PendingTransaction{}, err
	}
	if p.Amount, err = parseAmount(amount); err != nil {
		return PendingTransaction{}, err
	}
	p.Tags = splitTags(tags)
	if taggedAt.Valid {
		p.TaggedAt = &taggedAt.Time
	}
	return p, nil
}
