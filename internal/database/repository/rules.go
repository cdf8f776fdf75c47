package repository

import (
	"context"
	"database/sql"
)

// RuleRepo stores concept-to-tags rules. UNIQUE(concept, match_type) keeps
// the rule table free of contradictory duplicates.
type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) Add(ctx context.Context, rule TagRule) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tag_rules(id, concept, match_type, tags, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rule.ID, rule.Concept, rule.Match, joinTags(rule.Tags))
	return err
}

func (r *RuleRepo) Get(ctx context.Context, id string) (*TagRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, concept, match_type, tags, created_at FROM tag_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepo) List(ctx context.Context) ([]TagRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, concept, match_type, tags, created_at FROM tag_rules ORDER BY concept, match_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TagRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) Update(ctx context.Context, rule TagRule) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE tag_rules SET concept = ?, match_type = ?, tags = ? WHERE id = ?
	`, rule.Concept, rule.Match, joinTags(rule.Tags), rule.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *RuleRepo) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tag_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanRule(row scanner) (TagRule, error) {
	var rule TagRule
	var tags string
	if err := row.Scan(&rule.ID, &rule.Concept, &rule.Match, &tags, &rule.CreatedAt); err != nil {
		return TagRule{}, err
	}
	rule.Tags = splitTags(tags)
	return rule, nil
}
