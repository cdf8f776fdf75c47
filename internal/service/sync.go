package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/fintool/internal/bank"
	"github.com/jask/fintool/internal/concept"
	"github.com/jask/fintool/internal/database"
	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/mailbox"
	"github.com/jask/fintool/internal/tagging"
)

// SyncService drives the email-to-ledger pipeline: fetch notifications,
// parse them into candidates, stage new ones, tag, and commit.
type SyncService struct {
	Pending *repository.PendingRepo
	Ledger  *repository.LedgerRepo
	Rules   *repository.RuleRepo
	State   *repository.SyncStateRepo
	Banks   *bank.Registry
	Log     *log.Logger
}

type SyncOptions struct {
	Provider string
	Mailbox  string
	Bank     string // optional: restrict parsing to one bank
}

type SyncReport struct {
	Fetched      int
	Parsed       int
	Unrecognized int
	Ambiguous    int
	Malformed    int
	Duplicates   int
	Staged       int
	Tagged       int
	Errors       []error
}

type TagReport struct {
	Tagged   int
	Untagged int
}

type CommitReport struct {
	Committed int
	Failed    int
	Errors    []error
}

type ConceptSummary struct {
	Concept string
	Count   int
	Nearest string // closest rule concept, empty when none is near
}

// Fingerprint identifies a notification by source, day, canonical amount and
// case/whitespace-folded description. Two emails for the same purchase hash
// alike; same-day purchases at one merchant differ by their reference number,
// which folding preserves.
func Fingerprint(source string, date time.Time, amount decimal.Decimal, description string) string {
	joined := strings.Join([]string{
		source,
		date.Format(time.DateOnly),
		amount.String(),
		concept.Fold(description),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum[:])
}

// Run fetches messages newer than the stored watermark, stages the ones that
// parse and are not already known, and applies tag rules to fresh entries.
// The watermark only advances when the run reaches the end; a fetch failure
// leaves it untouched so the next run retries the same window.
func (s *SyncService) Run(ctx context.Context, conn mailbox.Connector, opts SyncOptions) (SyncReport, error) {
	res := SyncReport{}
	start := database.Now()
	target := syncTarget(opts)

	since, err := s.State.Get(ctx, target)
	if err != nil {
		return res, fmt.Errorf("load sync watermark: %w", err)
	}

	var hinted bank.Parser
	if opts.Bank != "" {
		hinted, err = s.Banks.Get(opts.Bank)
		if err != nil {
			return res, err
		}
	}

	msgs, err := conn.Fetch(ctx, opts.Mailbox, since)
	if err != nil {
		return res, fmt.Errorf("fetch mail: %w", err)
	}
	res.Fetched = len(msgs)

	rules, err := s.Rules.List(ctx)
	if err != nil {
		return res, fmt.Errorf("load tag rules: %w", err)
	}

	for _, msg := range msgs {
		parser := hinted
		if parser == nil {
			parser, err = s.Banks.Select(msg)
			if err != nil {
				if errors.Is(err, bank.ErrAmbiguous) {
					res.Ambiguous++
					res.Errors = append(res.Errors, fmt.Errorf("message %s: %w", msg.ID, err))
				} else {
					res.Unrecognized++
				}
				continue
			}
		} else if !parser.Matches(msg) {
			res.Unrecognized++
			continue
		}

		cand, err := parser.Parse(msg)
		if err != nil {
			res.Malformed++
			res.Errors = append(res.Errors, fmt.Errorf("message %s: %w", msg.ID, err))
			continue
		}
		res.Parsed++

		fp := Fingerprint(cand.Source, cand.Date, cand.Amount, cand.Description)
		committed, err := s.Ledger.ContainsFingerprint(ctx, fp)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("message %s: %w", msg.ID, err))
			continue
		}
		staged, err := s.Pending.Exists(ctx, fp)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("message %s: %w", msg.ID, err))
			continue
		}
		if committed || staged {
			res.Duplicates++
			s.Log.Debug("skipping duplicate", "message", msg.ID, "description", cand.Description)
			continue
		}

		entry := repository.PendingTransaction{
			Fingerprint: fp,
			Date:        cand.Date,
			Amount:      cand.Amount,
			Type:        cand.Type,
			Description: cand.Description,
			Concept:     concept.Extract(cand.Description),
			Source:      cand.Source,
			Mailbox:     opts.Mailbox,
			MessageID:   msg.ID,
			Status:      repository.StatusUntagged,
		}
		if tags := tagging.Apply(entry.Concept, rules); len(tags) > 0 {
			now := database.Now()
			entry.Tags = tags
			entry.Status = repository.StatusTagged
			entry.TaggedAt = &now
		}

		if err := s.Pending.Stage(ctx, entry); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				res.Duplicates++
				continue
			}
			res.Errors = append(res.Errors, fmt.Errorf("stage %s: %w", msg.ID, err))
			continue
		}
		res.Staged++
		if entry.Status == repository.StatusTagged {
			res.Tagged++
		}
		s.Log.Debug("staged", "concept", entry.Concept, "amount", entry.Amount, "status", entry.Status)
	}

	if err := s.State.Put(ctx, target, start); err != nil {
		return res, fmt.Errorf("record sync watermark: %w", err)
	}
	return res, nil
}

// PendingEntries lists everything staged, oldest first.
func (s *SyncService) PendingEntries(ctx context.Context) ([]repository.PendingTransaction, error) {
	return s.Pending.List(ctx, "")
}

// UntaggedEntries lists staged entries no rule has matched yet.
func (s *SyncService) UntaggedEntries(ctx context.Context) ([]repository.PendingTransaction, error) {
	return s.Pending.List(ctx, repository.StatusUntagged)
}

// Concepts summarizes untagged entries by concept, with the nearest existing
// rule concept as a hint for writing the next rule.
func (s *SyncService) Concepts(ctx context.Context) ([]ConceptSummary, error) {
	counts, err := s.Pending.Concepts(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.Rules.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make([]string, 0, len(rules))
	for _, r := range rules {
		known = append(known, r.Concept)
	}
	out := make([]ConceptSummary, 0, len(counts))
	for _, c := range counts {
		nearest, _ := concept.Suggest(c.Concept, known)
		out = append(out, ConceptSummary{
			Concept: c.Concept,
			Count:   c.Count,
			Nearest: nearest,
		})
	}
	return out, nil
}

// Tag re-applies the current rules to untagged entries.
func (s *SyncService) Tag(ctx context.Context) (TagReport, error) {
	res := TagReport{}
	entries, err := s.Pending.List(ctx, repository.StatusUntagged)
	if err != nil {
		return res, err
	}
	rules, err := s.Rules.List(ctx)
	if err != nil {
		return res, fmt.Errorf("load tag rules: %w", err)
	}
	for _, e := range entries {
		tags := tagging.Apply(e.Concept, rules)
		if len(tags) == 0 {
			res.Untagged++
			continue
		}
		if err := s.Pending.SetTags(ctx, e.Fingerprint, tags); err != nil {
			return res, fmt.Errorf("tag %s: %w", e.Fingerprint, err)
		}
		res.Tagged++
		s.Log.Debug("tagged", "concept", e.Concept, "tags", tags)
	}
	return res, nil
}

// Commit moves tagged entries into the ledger. Each entry is its own unit of
// work: one failure is recorded and the rest keep going. With acceptUntagged
// set, untagged entries are committed too, without tags.
func (s *SyncService) Commit(ctx context.Context, acceptUntagged bool) (CommitReport, error) {
	res := CommitReport{}
	status := repository.StatusTagged
	if acceptUntagged {
		status = ""
	}
	entries, err := s.Pending.List(ctx, status)
	if err != nil {
		return res, err
	}
	for _, e := range entries {
		t := repository.Transaction{
			ID:          uuid.NewString(),
			Date:        e.Date,
			Amount:      e.Amount,
			Type:        e.Type,
			Description: e.Description,
			Concept:     e.Concept,
			Source:      e.Source,
			Fingerprint: e.Fingerprint,
			Tags:        e.Tags,
		}
		if err := s.Ledger.CommitPending(ctx, t); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("commit %s: %w", e.Fingerprint, err))
			continue
		}
		res.Committed++
		s.Log.Debug("committed", "concept", e.Concept, "amount", e.Amount)
	}
	return res, nil
}

func syncTarget(opts SyncOptions) string {
	return strings.Join([]string{opts.Provider, opts.Bank, opts.Mailbox}, ",")
}
