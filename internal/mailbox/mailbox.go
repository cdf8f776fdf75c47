// Package mailbox fetches raw notification emails for the sync pipeline.
// Connection and credential handling belong to the provider side of this
// boundary; the pipeline only consumes fetched messages.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RawMessage is one notification email as fetched from a mailbox.
type RawMessage struct {
	ID         string
	Sender     string
	Subject    string
	Body       string // HTML payload
	ReceivedAt time.Time
}

// Connector fetches raw messages from one provider. A fetch error aborts the
// sync run; there is no partial result.
type Connector interface {
	Fetch(ctx context.Context, mailbox string, since time.Time) ([]RawMessage, error)
}

// ErrUnsupportedProvider is returned for providers with no registered connector.
var ErrUnsupportedProvider = errors.New("unsupported mail provider")

// NewConnector returns the connector registered under provider.
func NewConnector(provider, root string) (Connector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "maildir":
		return &Maildir{Root: root}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}
