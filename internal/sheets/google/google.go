package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	applog "dayplan/internal/log"
	ports "dayplan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.ExportWriter = (*Client)(nil)

// New creates a Sheets client writing to sheetName inside spreadsheetID.
// Authentication comes from opts, usually WithServiceAccount.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Export"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentSheets).
		InfoContext(ctx, "Google Sheets service created", "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// WithServiceAccount loads service account credentials from inline JSON or,
// failing that, from a file.
func WithServiceAccount(inlineJSON, file string) (goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		credentialsJSON = []byte(inlineJSON)
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return goption.WithCredentialsJSON(credentialsJSON), nil
}

// WriteExport clears the export sheet and writes values starting at A1.
func (c *Client) WriteExport(ctx context.Context, values [][]interface{}) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.sheetName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	rng := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentSheets).InfoContext(ctx, "Export written to sheet",
		"range", resp.UpdatedRange,
		"rows", resp.UpdatedRows)

	return resp.UpdatedRange, nil
}
