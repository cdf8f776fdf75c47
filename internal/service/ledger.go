package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/fintool/internal/concept"
	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/tagging"
)

// LedgerService handles manual ledger entries and reporting.
type LedgerService struct {
	Ledger *repository.LedgerRepo
	Log    *log.Logger
}

type AddInput struct {
	Type        string
	Date        string // YYYY-MM-DD
	Amount      string
	Description string
	Tags        []string
}

// EditInput carries the fields to change; nil pointers keep current values.
type EditInput struct {
	Type        *string
	Date        *string
	Amount      *string
	Description *string
	Tags        []string // nil keeps current tags, empty slice clears them
}

type TagTotal struct {
	Tag   string
	Total decimal.Decimal
}

type Summary struct {
	Count   int
	Income  decimal.Decimal
	Outcome decimal.Decimal
	Net     decimal.Decimal
	ByTag   []TagTotal
}

var supportedTypes = map[string]bool{
	"income":  true,
	"outcome": true,
}

// Add records a manual entry. Manual entries carry no fingerprint, so they
// never collide with synced ones.
func (s *LedgerService) Add(ctx context.Context, in AddInput) (repository.Transaction, error) {
	t, err := buildTransaction(in)
	if err != nil {
		return repository.Transaction{}, err
	}
	if err := s.Ledger.Insert(ctx, t); err != nil {
		return repository.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.Log.Debug("added entry", "id", t.ID, "type", t.Type, "amount", t.Amount)
	return t, nil
}

func (s *LedgerService) Edit(ctx context.Context, id string, in EditInput) (repository.Transaction, error) {
	t, err := s.Ledger.Get(ctx, id)
	if err != nil {
		return repository.Transaction{}, err
	}
	if t == nil {
		return repository.Transaction{}, fmt.Errorf("transaction %s not found", id)
	}
	if in.Type != nil {
		if !supportedTypes[*in.Type] {
			return repository.Transaction{}, fmt.Errorf("unsupported type %q", *in.Type)
		}
		t.Type = *in.Type
	}
	if in.Date != nil {
		d, err := time.Parse(time.DateOnly, *in.Date)
		if err != nil {
			return repository.Transaction{}, fmt.Errorf("parse date: %w", err)
		}
		t.Date = d
	}
	if in.Amount != nil {
		a, err := decimal.NewFromString(strings.TrimSpace(*in.Amount))
		if err != nil {
			return repository.Transaction{}, fmt.Errorf("parse amount: %w", err)
		}
		t.Amount = a
	}
	if in.Description != nil {
		t.Description = *in.Description
		t.Concept = concept.Extract(*in.Description)
	}
	if in.Tags != nil {
		t.Tags = tagging.Normalize(in.Tags)
	}
	if err := s.Ledger.Update(ctx, *t); err != nil {
		return repository.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return *t, nil
}

func (s *LedgerService) Remove(ctx context.Context, id string) error {
	return s.Ledger.Remove(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, f repository.LedgerFilters) ([]repository.Transaction, error) {
	return s.Ledger.List(ctx, f)
}

// Summarize totals the entries matching the filters. Income and outcome are
// split by the sign-carrying amounts, so outcome comes back negative.
func (s *LedgerService) Summarize(ctx context.Context, f repository.LedgerFilters) (Summary, error) {
	rows, err := s.Ledger.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Count: len(rows)}
	byTag := map[string]decimal.Decimal{}
	for _, t := range rows {
		if t.Amount.IsNegative() {
			sum.Outcome = sum.Outcome.Add(t.Amount)
		} else {
			sum.Income = sum.Income.Add(t.Amount)
		}
		for _, tag := range t.Tags {
			byTag[tag] = byTag[tag].Add(t.Amount)
		}
	}
	sum.Net = sum.Income.Add(sum.Outcome)
	for tag, total := range byTag {
		sum.ByTag = append(sum.ByTag, TagTotal{Tag: tag, Total: total})
	}
	sort.Slice(sum.ByTag, func(i, j int) bool { return sum.ByTag[i].Tag < sum.ByTag[j].Tag })
	return sum, nil
}

func buildTransaction(in AddInput) (repository.Transaction, error) {
	if !supportedTypes[in.Type] {
		return repository.Transaction{}, fmt.Errorf("unsupported type %q", in.Type)
	}
	date, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		return repository.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return repository.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return repository.Transaction{}, errors.New("description required")
	}
	return repository.Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Amount:      amount,
		Type:        in.Type,
		Description: desc,
		Concept:     concept.Extract(desc),
		Source:      "manual",
		Tags:        tagging.Normalize(in.Tags),
	}, nil
}
