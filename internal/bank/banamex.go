package bank

import (
	"strings"
	"time"

	"github.com/jask/fintool/internal/mailbox"
)

// Banamex parses Citibanamex card purchase notifications. Field labels and
// values arrive as adjacent text nodes; the amount is the first text node
// carrying a currency symbol.
type Banamex struct{}

const (
	banamexConcept = "Establecimiento"
	banamexDate    = "Fecha y hora"
	banamexKind    = "Retiro/Compra"
)

func (b *Banamex) Name() string { return "banamex" }

func (b *Banamex) Matches(msg mailbox.RawMessage) bool {
	return strings.Contains(msg.Body, banamexConcept) && strings.Contains(msg.Body, banamexDate)
}

func (b *Banamex) Parse(msg mailbox.RawMessage) (Candidate, error) {
	nodes := textNodes(msg.Body)

	var concept, amountStr, dateStr string
	purchase := false
	for i := 0; i < len(nodes); i++ {
		switch {
		case strings.Contains(nodes[i], banamexConcept):
			if concept == "" && i+1 < len(nodes) {
				concept = nodes[i+1]
			}
			i++
		case strings.Contains(nodes[i], "$"):
			if amountStr == "" {
				amountStr = nodes[i]
			}
		case strings.Contains(nodes[i], banamexDate):
			if dateStr == "" && i+1 < len(nodes) {
				dateStr = nodes[i+1]
			}
			i++
		case strings.Contains(nodes[i], banamexKind):
			purchase = true
		}
	}

	if !purchase {
		return Candidate{}, &ParseError{Bank: b.Name(), Reason: "not a purchase notification"}
	}
	if reason := missingField(concept, amountStr, dateStr); reason != "" {
		return Candidate{}, &ParseError{Bank: b.Name(), Reason: reason}
	}

	amount, err := parseAmount(amountStr)
	if err != nil {
		return Candidate{}, &ParseError{Bank: b.Name(), Reason: err.Error()}
	}
	date, err := parseBanamexDate(dateStr)
	if err != nil {
		return Candidate{}, &ParseError{Bank: b.Name(), Reason: err.Error()}
	}

	return Candidate{
		Source:      b.Name(),
		Date:        date,
		Amount:      amount.Neg(),
		Type:        "outcome",
		Description: concept,
	}, nil
}

// parseBanamexDate reads "10/01/2024 14:22" and the older "10/01/24" form,
// both day first.
func parseBanamexDate(s string) (time.Time, error) {
	token := strings.Fields(s)[0]
	layout := "02/01/2006"
	if parts := strings.Split(token, "/"); len(parts) == 3 && len(parts[2]) == 2 {
		layout = "02/01/06"
	}
	return time.Parse(layout, token)
}

func missingField(concept, amount, date string) string {
	switch {
	case concept == "":
		return "missing concept"
	case amount == "":
		return "missing amount"
	case date == "":
		return "missing date"
	}
	return ""
}
