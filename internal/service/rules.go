package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/tagging"
)

// RuleService manages the tag rules the synchronizer applies.
type RuleService struct {
	Rules *repository.RuleRepo
	Log   *log.Logger
}

type RuleInput struct {
	Concept string
	Match   string // exact (default) or contains
	Tags    []string
}

func (s *RuleService) Add(ctx context.Context, in RuleInput) (repository.TagRule, error) {
	r, err := buildRule(in)
	if err != nil {
		return repository.TagRule{}, err
	}
	if err := s.Rules.Add(ctx, r); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return repository.TagRule{}, fmt.Errorf("rule for concept %q already exists", r.Concept)
		}
		return repository.TagRule{}, fmt.Errorf("insert rule: %w", err)
	}
	s.Log.Debug("added rule", "concept", r.Concept, "match", r.Match, "tags", r.Tags)
	return r, nil
}

func (s *RuleService) List(ctx context.Context) ([]repository.TagRule, error) {
	return s.Rules.List(ctx)
}

func (s *RuleService) Update(ctx context.Context, id string, in RuleInput) (repository.TagRule, error) {
	existing, err := s.Rules.Get(ctx, id)
	if err != nil {
		return repository.TagRule{}, err
	}
	if existing == nil {
		return repository.TagRule{}, fmt.Errorf("rule %s not found", id)
	}
	r, err := buildRule(in)
	if err != nil {
		return repository.TagRule{}, err
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	if err := s.Rules.Update(ctx, r); err != nil {
		return repository.TagRule{}, fmt.Errorf("update rule: %w", err)
	}
	return r, nil
}

func (s *RuleService) Remove(ctx context.Context, id string) error {
	return s.Rules.Remove(ctx, id)
}

func buildRule(in RuleInput) (repository.TagRule, error) {
	c := strings.TrimSpace(strings.ToLower(in.Concept))
	if c == "" {
		return repository.TagRule{}, errors.New("concept required")
	}
	match := in.Match
	if match == "" {
		match = repository.MatchExact
	}
	if match != repository.MatchExact && match != repository.MatchContains {
		return repository.TagRule{}, fmt.Errorf("unsupported match type %q", match)
	}
	tags := tagging.Normalize(in.Tags)
	if len(tags) == 0 {
		return repository.TagRule{}, errors.New("at least one tag required")
	}
	return repository.TagRule{
		ID:      uuid.NewString(),
		Concept: c,
		Match:   match,
		Tags:    tags,
	}, nil
}
