package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/fintool/internal/bank"
	"github.com/jask/fintool/internal/database"
	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/mailbox"
)

func setupSyncTest(t *testing.T) (*SyncService, mailbox.Connector, string, context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	require.NoError(t, database.RunMigrations(dbPath))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := &SyncService{
		Pending: repository.NewPendingRepo(db),
		Ledger:  repository.NewLedgerRepo(db),
		Rules:   repository.NewRuleRepo(db),
		State:   repository.NewSyncStateRepo(db),
		Banks:   bank.Default(),
		Log:     log.New(io.Discard),
	}

	mailRoot := filepath.Join(tmpDir, "mail")
	conn, err := mailbox.NewConnector("maildir", mailRoot)
	require.NoError(t, err)
	return svc, conn, mailRoot, ctx
}

func banamexBody(merchant, amount, date string) string {
	return fmt.Sprintf(`<html><body><table>
<tr><td>Tipo de operación</td><td>Retiro/Compra</td></tr>
<tr><td>Establecimiento</td><td>%s</td></tr>
<tr><td>Monto</td><td>%s</td></tr>
<tr><td>Fecha y hora</td><td>%s</td></tr>
</table></body></html>`, merchant, amount, date)
}

func heyBody(merchant, amount, date string) string {
	return fmt.Sprintf(`<html><body>
<h4>Comercio en donde se hizo la compra</h4><h4>%s</h4>
<h4>Monto de compra</h4><h4>%s</h4>
<h4>Fecha y hora de la transacción</h4><h4>%s</h4>
</body></html>`, merchant, amount, date)
}

// writeEmail drops one message file into the maildir. An empty dateHeader
// omits the Date header, so the message is fetched on every run regardless
// of the watermark.
func writeEmail(t *testing.T, root, box, name, dateHeader, body string) {
	t.Helper()
	dir := filepath.Join(root, box)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw := "From: Banco <alertas@banco.example>\r\nSubject: Compra\r\n"
	if dateHeader != "" {
		raw += "Date: " + dateHeader + "\r\n"
	}
	raw += "Message-Id: <" + name + "@test>\r\n\r\n" + body + "\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".eml"), []byte(raw), 0o644))
}

func TestSyncPipeline(t *testing.T) {
	t.Parallel()
	svc, conn, root, ctx := setupSyncTest(t)

	writeEmail(t, root, "transactions", "amzn", "",
		banamexBody("AMZN MKTP US*1234 REF998877", "$42.50", "10/01/2024 14:22"))
	opts := SyncOptions{Provider: "maildir", Mailbox: "transactions"}

	rep, err := svc.Run(ctx, conn, opts)
	require.NoError(t, err)
	require.Empty(t, rep.Errors)
	require.Equal(t, 1, rep.Fetched)
	require.Equal(t, 1, rep.Parsed)
	require.Equal(t, 1, rep.Staged)
	require.Equal(t, 0, rep.Tagged)
	t.Log("first sync staged the purchase")

	pending, err := svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	e := pending[0]
	require.Equal(t, repository.StatusUntagged, e.Status)
	require.Equal(t, "amzn mktp us", e.Concept)
	require.Equal(t, "AMZN MKTP US*1234 REF998877", e.Description)
	require.True(t, e.Amount.Equal(decimal.RequireFromString("-42.5")), "got %s", e.Amount)
	require.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), e.Date)
	require.Equal(t, "banamex", e.Source)
	require.Equal(t, "transactions", e.Mailbox)
	require.Equal(t, "amzn@test", e.MessageID)
	require.Equal(t, Fingerprint("banamex", e.Date, e.Amount, e.Description), e.Fingerprint)
	require.Nil(t, e.Tags)
	require.Nil(t, e.TaggedAt)

	rep2, err := svc.Run(ctx, conn, opts)
	require.NoError(t, err)
	require.Equal(t, 1, rep2.Fetched)
	require.Equal(t, 1, rep2.Duplicates)
	require.Equal(t, 0, rep2.Staged)
	t.Log("re-sync staged nothing")

	require.NoError(t, svc.Rules.Add(ctx, repository.TagRule{
		ID:      uuid.NewString(),
		Concept: "amzn mktp us",
		Match:   repository.MatchExact,
		Tags:    []string{"shopping", "online"},
	}))
	tagRep, err := svc.Tag(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tagRep.Tagged)
	require.Equal(t, 0, tagRep.Untagged)

	pending, err = svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, repository.StatusTagged, pending[0].Status)
	require.Equal(t, []string{"online", "shopping"}, pending[0].Tags)
	require.NotNil(t, pending[0].TaggedAt)
	t.Log("rule tagged the entry")

	comRep, err := svc.Commit(ctx, false)
	require.NoError(t, err)
	require.Empty(t, comRep.Errors)
	require.Equal(t, 1, comRep.Committed)
	require.Equal(t, 0, comRep.Failed)

	rows, err := svc.Ledger.List(ctx, repository.LedgerFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	require.NotEmpty(t, got.ID)
	require.Equal(t, []string{"online", "shopping"}, got.Tags)
	require.Equal(t, e.Fingerprint, got.Fingerprint)
	require.True(t, got.Amount.Equal(e.Amount))
	require.Equal(t, "outcome", got.Type)

	left, err := svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, left)
	t.Log("commit moved the entry into the ledger")

	rep3, err := svc.Run(ctx, conn, opts)
	require.NoError(t, err)
	require.Equal(t, 1, rep3.Duplicates)
	require.Equal(t, 0, rep3.Staged)

	rows, err = svc.Ledger.List(ctx, repository.LedgerFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	t.Log("committed fingerprint kept the re-synced message out")
}

func TestSyncTagsAtStageTime(t *testing.T) {
	t.Parallel()
	svc, conn, root, ctx := setupSyncTest(t)

	require.NoError(t, svc.Rules.Add(ctx, repository.TagRule{
		ID:      uuid.NewString(),
		Concept: "uber eats",
		Match:   repository.MatchExact,
		Tags:    []string{"food"},
	}))
	writeEmail(t, root, "transactions", "uber", "",
		heyBody("UBER EATS 8005928996", "$135.00", "01/07/2021 - 20:29 hrs"))

	rep, err := svc.Run(ctx, conn, SyncOptions{Provider: "maildir", Mailbox: "transactions"})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Staged)
	require.Equal(t, 1, rep.Tagged)

	pending, err := svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, repository.StatusTagged, pending[0].Status)
	require.Equal(t, []string{"food"}, pending[0].Tags)
	require.NotNil(t, pending[0].TaggedAt)
}

func TestSyncWatermark(t *testing.T) {
	t.Parallel()
	svc, conn, root, ctx := setupSyncTest(t)

	writeEmail(t, root, "inbox", "old", "Mon, 15 Jan 2024 10:00:00 +0000",
		banamexBody("OXXO GAS NORTE", "$500.00", "15/01/2024 09:58"))
	opts := SyncOptions{Provider: "maildir", Mailbox: "inbox"}

	rep, err := svc.Run(ctx, conn, opts)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Fetched)
	require.Equal(t, 1, rep.Staged)

	// The message predates the stored watermark now, so it is not refetched.
	rep2, err := svc.Run(ctx, conn, opts)
	require.NoError(t, err)
	require.Equal(t, 0, rep2.Fetched)
	require.Equal(t, 0, rep2.Duplicates)
	t.Log("watermark filtered the already seen message")

	// A failed fetch must not advance the watermark.
	badOpts := SyncOptions{Provider: "maildir", Mailbox: "missing"}
	_, err = svc.Run(ctx, conn, badOpts)
	require.Error(t, err)
	since, err := svc.State.Get(ctx, syncTarget(badOpts))
	require.NoError(t, err)
	require.True(t, since.IsZero())
}

func TestSyncSkipsForeignAndMalformed(t *testing.T) {
	t.Parallel()
	svc, conn, root, ctx := setupSyncTest(t)

	writeEmail(t, root, "inbox", "news", "",
		"<html><body><p>Boletín semanal de ofertas</p></body></html>")
	writeEmail(t, root, "inbox", "deposit", "",
		`<html><body><table>
<tr><td>Tipo de operación</td><td>Depósito</td></tr>
<tr><td>Establecimiento</td><td>NOMINA EMPRESA SA</td></tr>
<tr><td>Monto</td><td>$9,000.00</td></tr>
<tr><td>Fecha y hora</td><td>01/02/2024 09:00</td></tr>
</table></body></html>`)
	writeEmail(t, root, "inbox", "both", "",
		`<html><body><p>Establecimiento y Fecha y hora</p>
<h4>Comercio en donde se hizo la compra</h4></body></html>`)
	writeEmail(t, root, "inbox", "ok", "",
		banamexBody("OXXO GAS NORTE", "$500.00", "15/01/2024 09:58"))

	rep, err := svc.Run(ctx, conn, SyncOptions{Provider: "maildir", Mailbox: "inbox"})
	require.NoError(t, err)
	require.Equal(t, 4, rep.Fetched)
	require.Equal(t, 1, rep.Unrecognized)
	require.Equal(t, 1, rep.Malformed)
	require.Equal(t, 1, rep.Ambiguous)
	require.Equal(t, 1, rep.Parsed)
	require.Equal(t, 1, rep.Staged)
	require.Len(t, rep.Errors, 2)
}

func TestSyncBankHint(t *testing.T) {
	t.Parallel()
	svc, conn, root, ctx := setupSyncTest(t)

	writeEmail(t, root, "inbox", "bmx", "",
		banamexBody("OXXO GAS NORTE", "$500.00", "15/01/2024 09:58"))
	writeEmail(t, root, "inbox", "hey", "",
		heyBody("UBER EATS 8005928996", "$135.00", "01/07/2021 - 20:29 hrs"))

	rep, err := svc.Run(ctx, conn, SyncOptions{Provider: "maildir", Mailbox: "inbox", Bank: "banamex"})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Fetched)
	require.Equal(t, 1, rep.Staged)
	require.Equal(t, 1, rep.Unrecognized)

	pending, err := svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "banamex", pending[0].Source)

	rep2, err := svc.Run(ctx, conn, SyncOptions{Provider: "maildir", Mailbox: "inbox", Bank: "heybanco"})
	require.NoError(t, err)
	require.Equal(t, 1, rep2.Staged)
	require.Equal(t, 1, rep2.Unrecognized)

	_, err = svc.Run(ctx, conn, SyncOptions{Provider: "maildir", Mailbox: "inbox", Bank: "santander"})
	require.ErrorIs(t, err, bank.ErrUnknownBank)
}

func TestCommitPartialFailure(t *testing.T) {
	t.Parallel()
	svc, _, _, ctx := setupSyncTest(t)

	now := time.Now().UTC()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	stage := func(fp, desc string) {
		require.NoError(t, svc.Pending.Stage(ctx, repository.PendingTransaction{
			Fingerprint: fp,
			Date:        day,
			Amount:      decimal.RequireFromString("-10"),
			Type:        "outcome",
			Description: desc,
			Concept:     desc,
			Source:      "banamex",
			Mailbox:     "inbox",
			MessageID:   fp + "@test",
			Tags:        []string{"x"},
			Status:      repository.StatusTagged,
			TaggedAt:    &now,
		}))
	}
	stage("fp-a", "a")
	stage("fp-b", "b")

	// fp-a is already in the ledger, so its commit hits the unique index.
	require.NoError(t, svc.Ledger.Insert(ctx, repository.Transaction{
		ID:          uuid.NewString(),
		Date:        day,
		Amount:      decimal.RequireFromString("-10"),
		Type:        "outcome",
		Description: "a",
		Concept:     "a",
		Source:      "banamex",
		Fingerprint: "fp-a",
	}))

	rep, err := svc.Commit(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Committed)
	require.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Errors, 1)

	left, err := svc.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "fp-a", left[0].Fingerprint)
	t.Log("failed entry stayed pending")

	committed, err := svc.Ledger.ContainsFingerprint(ctx, "fp-b")
	require.NoError(t, err)
	require.True(t, committed)
}

func TestCommitAcceptUntagged(t *testing.T) {
	t.Parallel()
	svc, _, _, ctx := setupSyncTest(t)

	require.NoError(t, svc.Pending.Stage(ctx, repository.PendingTransaction{
		Fingerprint: "fp-u",
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-7.25"),
		Type:        "outcome",
		Description: "CAFE CENTRO",
		Concept:     "cafe centro",
		Source:      "banamex",
		Mailbox:     "inbox",
		MessageID:   "u@test",
		Status:      repository.StatusUntagged,
	}))

	rep, err := svc.Commit(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 0, rep.Committed)

	rep, err = svc.Commit(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Committed)

	rows, err := svc.Ledger.List(ctx, repository.LedgerFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].Tags)
}

func TestConcepts(t *testing.T) {
	t.Parallel()
	svc, _, _, ctx := setupSyncTest(t)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	stage := func(fp, concept string) {
		require.NoError(t, svc.Pending.Stage(ctx, repository.PendingTransaction{
			Fingerprint: fp,
			Date:        day,
			Amount:      decimal.RequireFromString("-1"),
			Type:        "outcome",
			Description: concept,
			Concept:     concept,
			Source:      "banamex",
			Mailbox:     "inbox",
			MessageID:   fp + "@test",
			Status:      repository.StatusUntagged,
		}))
	}
	stage("c1", "oxxo gas")
	stage("c2", "oxxo gas")
	stage("c3", "uber eat")

	require.NoError(t, svc.Rules.Add(ctx, repository.TagRule{
		ID:      uuid.NewString(),
		Concept: "uber eats",
		Match:   repository.MatchExact,
		Tags:    []string{"food"},
	}))

	got, err := svc.Concepts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "oxxo gas", got[0].Concept)
	require.Equal(t, 2, got[0].Count)
	require.Empty(t, got[0].Nearest)

	require.Equal(t, "uber eat", got[1].Concept)
	require.Equal(t, 1, got[1].Count)
	require.Equal(t, "uber eats", got[1].Nearest)
}
