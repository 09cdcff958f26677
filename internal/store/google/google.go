// Package google mirrors the household transaction log to a Google
// Spreadsheet so both members can inspect the shared ledger outside the
// application. Rows are append-only; the sheet is never rewritten.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column layout of the ledger sheet, A through I.
// id | kind | amount | description | date | paid_by | split_with | household_id | created_at
const ledgerColumns = 9

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
}

var (
	_ store.TransactionAppender = (*Client)(nil)
	_ store.TransactionLister   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_LEDGER_SHEET_NAME (default "Ledger").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	ledgerSheet := strings.TrimSpace(os.Getenv("GOOGLE_LEDGER_SHEET_NAME"))
	if ledgerSheet == "" {
		ledgerSheet = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerSheet:   ledgerSheet,
	}, nil
}

// newSheetsService initializes a Sheets service using Service Account
// credentials, either inline JSON or a credentials file path.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes one ledger row after the last occupied row.
// A transaction that already carries an id (one synced from the primary
// store) keeps it; otherwise the row number becomes the id.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if c.svc == nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: errors.New("sheets service not initialized")}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: err}
	}

	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: fmt.Errorf("get sheet dimensions for %s: %w", c.ledgerSheet, err)}
	}
	nextRow := len(resp.Values) + 1
	if t.ID == "" {
		t.ID = fmt.Sprintf("row-%d", nextRow)
	}

	dataRange := fmt.Sprintf("%s!A%d:I%d", c.ledgerSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		t.ID,
		string(t.Kind),
		t.Amount.String(),
		t.Description,
		t.Date.Format(dateLayout),
		string(t.PaidBy),
		t.SplitWith,
		t.HouseholdID,
		t.CreatedAt.Format(time.RFC3339),
	}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: fmt.Errorf("update %s: %w", dataRange, err)}
	}

	slog.InfoContext(ctx, "Appended transaction to sheet",
		"sheet", c.ledgerSheet, "row", nextRow, "transaction_id", t.ID)
	return t, nil
}

// ListTransactions scans the ledger sheet and returns the rows belonging to
// the given household, newest first. Parsing is best-effort: header rows and
// rows with unreadable amounts or dates are skipped.
func (c *Client) ListTransactions(ctx context.Context, householdID string) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, &store.StoreError{Op: "list", Err: errors.New("sheets service not initialized")}
	}
	rng := fmt.Sprintf("%s!A:I", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, &store.StoreError{Op: "list", Err: fmt.Errorf("read %s: %w", rng, err)}
	}

	out := make([]core.Transaction, 0, len(resp.Values))
	for _, row := range resp.Values {
		t, ok := parseLedgerRow(toStrings(row))
		if !ok {
			continue
		}
		if householdID != "" && t.HouseholdID != householdID {
			continue
		}
		out = append(out, t)
	}
	core.SortForDisplay(out)
	return out, nil
}

func parseLedgerRow(cols []string) (core.Transaction, bool) {
	if len(cols) < ledgerColumns {
		return core.Transaction{}, false
	}
	kind := core.TransactionKind(strings.ToLower(strings.TrimSpace(cols[1])))
	if !kind.Valid() {
		// Header row or free-form note.
		return core.Transaction{}, false
	}
	cents, ok := parseEurosToCents(cols[2])
	if !ok {
		return core.Transaction{}, false
	}
	date, err := parseDateCell(cols[4])
	if err != nil {
		return core.Transaction{}, false
	}
	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(cols[8]))
	if err != nil {
		createdAt = time.Time{}
	}
	return core.Transaction{
		ID:          strings.TrimSpace(cols[0]),
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(cols[3]),
		Date:        date,
		PaidBy:      core.PartyID(strings.TrimSpace(cols[5])),
		SplitWith:   strings.TrimSpace(cols[6]),
		HouseholdID: strings.TrimSpace(cols[7]),
		CreatedAt:   createdAt,
	}, true
}

const dateLayout = "2006-01-02"

func parseDateCell(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	// ISO first; fall back to the day-first format Sheets sometimes
	// rewrites cells to.
	for _, layout := range []string{dateLayout, "02.01.2006", "02/01/2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return core.NewDate(ts.Year(), int(ts.Month()), ts.Day()), nil
		}
	}
	return core.Date{}, fmt.Errorf("unrecognized date cell %q", s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseEurosToCents reads a money cell. Amounts go through the same exact
// decimal parsing as user input; ledger amounts are always positive, so a
// negative or zero cell is unreadable.
func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(strings.TrimSuffix(s, "€"))
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}
