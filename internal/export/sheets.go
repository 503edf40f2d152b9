// Package export appends monthly report snapshots to a Google Sheet.
// Export is on demand and write-only; nothing in the ledger reads the
// sheet back.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/services"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates an exporter from environment credentials.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		credentialsJSON []byte
		err             error
	)
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

// ExportMonth appends one summary row followed by one row per category
// to the report sheet. Values land as the same two-decimal strings the
// API serves.
func (e *SheetsExporter) ExportMonth(ctx context.Context, month string, summary services.Summary, categories services.CategoryReport) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := [][]any{
		{month, "summary", summary.BaseCurrency, summary.Income, summary.Expense, summary.Net},
	}
	for _, item := range categories.Items {
		rows = append(rows, []any{month, "category", item.CategoryName, item.Total, "", ""})
	}

	rng := fmt.Sprintf("%s!A:F", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report rows: %w", err)
	}

	slog.InfoContext(ctx, "Exported monthly report to sheet",
		"month", month,
		"rows", len(rows),
		"sheet", e.sheetName)
	return nil
}
