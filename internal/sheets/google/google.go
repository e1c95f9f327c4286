package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"expensetool/internal/core"
	applog "expensetool/internal/log"
	ports "expensetool/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.Mirror = (*Client)(nil)

// logger resolves at call time so it follows the process default set at startup.
func logger() *applog.Logger { return applog.Default(applog.ComponentSheets) }

const lastColumn = "N"

type Config struct {
	SpreadsheetID string
	SheetName     string
}

// Client mirrors expenses into one tab of a spreadsheet. Column A holds the
// expense id; row 1 is the header.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64

	// serializes find-then-write sequences on the tab
	mu sync.Mutex
}

// New connects to the spreadsheet, creating the tab and its header when
// missing. Without opts, service-account credentials are read from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	if len(opts) == 0 {
		creds, err := credentialsFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	c := &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	logger().InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName,
		"sheet_id", c.sheetID)
	return c, nil
}

func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger().InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger().InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// init resolves the numeric id of the tab, adding the tab if needed, and
// writes the header row into an empty sheet.
func (c *Client) init(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}

	found := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			c.sheetID = sh.Properties.SheetId
			found = true
			break
		}
	}
	if !found {
		resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: c.sheetName}},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheet %s: %w", c.sheetName, err)
		}
		if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
			return fmt.Errorf("add sheet %s: empty reply", c.sheetName)
		}
		c.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		logger().InfoContext(ctx, "Created mirror sheet", "sheet", c.sheetName, "sheet_id", c.sheetID)
	}

	headerRange := c.a1("A1:" + lastColumn + "1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", headerRange, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		return errors.New("expense has no id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, e.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(e)}}

	if row > 0 {
		rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		logger().InfoContext(ctx, "Mirror row updated", "expense_id", e.ID, "row", row)
		return nil
	}

	rng := c.a1("A:" + lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	logger().InfoContext(ctx, "Mirror row appended", "expense_id", e.ID)
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		logger().InfoContext(ctx, "Mirror row already absent", "expense_id", id)
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    c.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	logger().InfoContext(ctx, "Mirror row deleted", "expense_id", id, "row", row)
	return nil
}

// findRow returns the 1-based row holding id, or 0 when absent.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := c.a1("A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

// a1 qualifies rng with the quoted sheet name.
func (c *Client) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), rng)
}
