// Package bank recognizes and extracts transaction notifications from the
// email formats of supported banks.
package bank

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/fintool/internal/mailbox"
)

// Candidate is a provisional transaction extracted from one notification.
// Purchase notifications carry negative amounts.
type Candidate struct {
	Source      string
	Date        time.Time
	Amount      decimal.Decimal
	Type        string
	Description string
}

// Parser recognizes and extracts one bank's notification format.
type Parser interface {
	Name() string
	Matches(msg mailbox.RawMessage) bool
	Parse(msg mailbox.RawMessage) (Candidate, error)
}

var (
	// ErrNoMatch means no registered format recognizes the message.
	ErrNoMatch = errors.New("no bank format matches the message")
	// ErrAmbiguous means more than one format claims the message; the sync
	// pipeline rejects such messages rather than guessing.
	ErrAmbiguous = errors.New("message matches more than one bank format")
	// ErrUnknownBank is returned when an explicit bank hint names no parser.
	ErrUnknownBank = errors.New("unknown bank")
)

// ParseError reports a recognized message that could not be extracted.
type ParseError struct {
	Bank   string
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Bank, e.Reason) }

// Registry holds parsers in registration order.
type Registry struct {
	parsers []Parser
}

// Default returns a registry with every built-in bank format.
func Default() *Registry {
	r := &Registry{}
	r.Register(&Banamex{})
	r.Register(&HeyBanco{})
	return r
}

func (r *Registry) Register(p Parser) { r.parsers = append(r.parsers, p) }

// Names lists registered parsers in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		out[i] = p.Name()
	}
	return out
}

// Get returns the parser registered under name.
func (r *Registry) Get(name string) (Parser, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.parsers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBank, name)
}

// Select finds the single parser whose format matches msg. Zero matches yield
// ErrNoMatch, several yield ErrAmbiguous.
func (r *Registry) Select(msg mailbox.RawMessage) (Parser, error) {
	var found []Parser
	for _, p := range r.parsers {
		if p.Matches(msg) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return found[0], nil
	}
	names := make([]string, len(found))
	for i, p := range found {
		names[i] = p.Name()
	}
	return nil, fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(names, ", "))
}

// parseAmount reads notification amounts like "$1,234.50" or "MXN $1,234.50".
func parseAmount(s string) (decimal.Decimal, error) {
	fields := strings.Fields(s)
	var raw string
	switch len(fields) {
	case 0:
		return decimal.Zero, fmt.Errorf("empty amount")
	case 1:
		raw = fields[0]
	default:
		raw = fields[1]
	}
	raw = strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}
