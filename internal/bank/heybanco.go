package bank

import (
	"strings"
	"time"

	"github.com/jask/fintool/internal/mailbox"
)

// HeyBanco parses Hey Banco purchase notifications. The interesting fields
// live in <h4> elements, each label followed by its value.
type HeyBanco struct{}

const (
	heyConcept = "Comercio en donde se hizo la compra"
	heyAmount  = "Monto de compra"
	heyDate    = "Fecha y hora de la transacción"
)

func (h *HeyBanco) Name() string { return "heybanco" }

func (h *HeyBanco) Matches(msg mailbox.RawMessage) bool {
	return strings.Contains(msg.Body, heyConcept)
}

func (h *HeyBanco) Parse(msg mailbox.RawMessage) (Candidate, error) {
	nodes := elementText(msg.Body, "h4")

	var concept, amountStr, dateStr string
	for i := 0; i+1 < len(nodes); i++ {
		switch nodes[i] {
		case heyConcept:
			concept = nodes[i+1]
		case heyAmount:
			amountStr = nodes[i+1]
		case heyDate:
			dateStr = nodes[i+1]
		}
	}

	if reason := missingField(concept, amountStr, dateStr); reason != "" {
		return Candidate{}, &ParseError{Bank: h.Name(), Reason: reason}
	}

	amount, err := parseAmount(amountStr)
	if err != nil {
		return Candidate{}, &ParseError{Bank: h.Name(), Reason: err.Error()}
	}
	date, err := parseHeyDate(dateStr)
	if err != nil {
		return Candidate{}, &ParseError{Bank: h.Name(), Reason: err.Error()}
	}

	return Candidate{
		Source:      h.Name(),
		Date:        date,
		Amount:      amount.Neg(),
		Type:        "outcome",
		Description: concept,
	}, nil
}

// parseHeyDate reads "01/07/2021 - 20:29 hrs", day first.
func parseHeyDate(s string) (time.Time, error) {
	return time.Parse("02/01/2006", strings.Fields(s)[0])
}
