package mailbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Maildir reads exported notification emails from a local directory tree.
// Each mailbox is a subdirectory of Root holding one RFC 822 message per
// .eml file.
type Maildir struct {
	Root string
}

func (m *Maildir) Fetch(ctx context.Context, mailbox string, since time.Time) ([]RawMessage, error) {
	dir := filepath.Join(m.Root, mailbox)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mailbox %s: %w", mailbox, err)
	}

	var out []RawMessage
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".eml") {
			continue
		}
		msg, err := readMessage(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read message %s: %w", e.Name(), err)
		}
		// Messages without a parseable Date header are always included;
		// deduplication downstream keeps repeats out.
		if !since.IsZero() && !msg.ReceivedAt.IsZero() && msg.ReceivedAt.Before(since) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func readMessage(path string) (RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawMessage{}, err
	}
	defer f.Close()

	m, err := mail.ReadMessage(bufio.NewReader(f))
	if err != nil {
		return RawMessage{}, err
	}
	body, err := io.ReadAll(m.Body)
	if err != nil {
		return RawMessage{}, err
	}

	id := strings.Trim(m.Header.Get("Message-Id"), "<>")
	if id == "" {
		id = filepath.Base(path)
	}
	received, _ := m.Header.Date()

	return RawMessage{
		ID:         id,
		Sender:     m.Header.Get("From"),
		Subject:    m.Header.Get("Subject"),
		Body:       string(body),
		ReceivedAt: received,
	}, nil
}
