package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/fintool/internal/database"
)

// LedgerFilters defines list filters. Zero values mean no filter.
type LedgerFilters struct {
	From      time.Time // inclusive
	To        time.Time // inclusive
	Type      string
	Tag       string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// LedgerRepo handles committed transactions. The fingerprint column carries a
// unique index, so re-committing an already committed entry fails at the
// storage layer instead of duplicating it.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Insert stores a transaction and its tag rows atomically.
func (r *LedgerRepo) Insert(ctx context.Context, t Transaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertTransaction(ctx, tx, t)
	})
}

// CommitPending stores a transaction and removes its pending row in one
// transaction, so the entry is never resident in both tables.
func (r *LedgerRepo) CommitPending(ctx context.Context, t Transaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM pending_transactions WHERE fingerprint = ?`, t.Fingerprint)
		return err
	})
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO transactions(id, date, amount, type, description, concept, source, fingerprint, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, t.ID, t.Date.Format(time.DateOnly), t.Amount.String(), t.Type, t.Description,
		t.Concept, t.Source, nullableStr(t.Fingerprint))
	if err != nil {
		return err
	}
	return insertTags(ctx, tx, t.ID, t.Tags)
}

func insertTags(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO transaction_tags(transaction_id, tag) VALUES(?, ?)`, id, tag); err != nil {
			return err
		}
	}
	return nil
}

func (r *LedgerRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, date, amount, type, description, concept, source, fingerprint, created_at, updated_at
	FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	tags, err := r.fetchTags(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return &t, nil
}

// Update rewrites the row and replaces its tag set.
func (r *LedgerRepo) Update(ctx context.Context, t Transaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, amount = ?, type = ?, description = ?, concept = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, t.Date.Format(time.DateOnly), t.Amount.String(), t.Type, t.Description, t.Concept, t.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, t.ID); err != nil {
			return err
		}
		return insertTags(ctx, tx, t.ID, t.Tags)
	})
}

func (r *LedgerRepo) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *LedgerRepo) ContainsFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE fingerprint = ?`, fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *LedgerRepo) List(ctx context.Context, f LedgerFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.Format(time.DateOnly))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.transaction_id = transactions.id AND tt.tag = ?)")
		args = append(args, f.Tag)
	}
	if f.MinAmount != nil {
		where = append(where, "CAST(amount AS REAL) >= ?")
		args = append(args, f.MinAmount.InexactFloat64())
	}
	if f.MaxAmount != nil {
		where = append(where, "CAST(amount AS REAL) <= ?")
		args = append(args, f.MaxAmount.InexactFloat64())
	}

	query := "SELECT id, date, amount, type, description, concept, source, fingerprint, created_at, updated_at FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		tags, err := r.fetchTags(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *LedgerRepo) fetchTags(ctx context.Context, id string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM transaction_tags WHERE transaction_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var day, amount string
	var fingerprint sql.NullString
	if err := row.Scan(&t.ID, &day, &amount, &t.Type, &t.Description, &t.Concept,
		&t.Source, &fingerprint, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	var err error
	if t.Date, err = parseDay(day); err != nil {
		return Transaction{}, err
	}
	if t.Amount, err = parseAmount(amount); err != nil {
		return Transaction{}, err
	}
	if fingerprint.Valid {
		t.Fingerprint = fingerprint.String
	}
	return t, nil
}
