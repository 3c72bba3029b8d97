// Package sheets mirrors committed profiles into a Google spreadsheet.
// The mirror is best effort: every failure is classified and logged,
// never surfaced to the caller that committed the profile locally.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dnxsqw/physiq-bot/internal/config"
	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	"log/slog"
)

// Syncer mirrors one profile into external storage.
type Syncer interface {
	Sync(ctx context.Context, p profile.Profile) error
}

// Client talks to the Google Sheets API for a single spreadsheet tab.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	timeout       time.Duration
}

// NewClient builds a Sheets API client from configuration. Credentials
// may be inline service-account JSON or a path to a key file; with
// neither set the ambient application default credentials are used.
func NewClient(ctx context.Context, cfg config.SheetsConfig, timeout time.Duration) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	creds := strings.TrimSpace(cfg.Credentials)
	switch {
	case strings.HasPrefix(creds, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	case creds != "":
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service init: %w", err)
	}

	logger.Sheets.Info("sheets client ready",
		slog.String("event", "sheets.init"),
		slog.String("sheet", cfg.SheetName),
	)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		timeout:       timeout,
	}, nil
}

// Sync writes the profile into the sheet: if a row whose key column
// matches the user ID exists it is updated in place, otherwise a new
// row is appended. A missing header row is created first.
func (c *Client) Sync(ctx context.Context, p profile.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	keyRange := fmt.Sprintf("%s!%s:%s", c.sheetName, keyColumn, keyColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, keyRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read key column: %w", err)
	}

	if len(resp.Values) == 0 {
		header := &sheetsapi.ValueRange{Values: [][]interface{}{headerRow}}
		_, err = c.svc.Spreadsheets.Values.
			Append(c.spreadsheetID, c.sheetName, header).
			ValueInputOption("RAW").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := &sheetsapi.ValueRange{Values: [][]interface{}{profileRow(p)}}

	for i, cells := range resp.Values {
		if len(cells) == 0 {
			continue
		}
		if fmt.Sprint(cells[0]) != p.UserID {
			continue
		}
		// Rows are 1-based in A1 notation.
		target := fmt.Sprintf("%s!%s%d", c.sheetName, keyColumn, i+1)
		_, err = c.svc.Spreadsheets.Values.
			Update(c.spreadsheetID, target, row).
			ValueInputOption("RAW").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d: %w", i+1, err)
		}
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// ClassifyError maps a sync failure to a coarse kind for logging.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return "auth"
		case apiErr.Code == 404:
			return "not_found"
		case apiErr.Code == 429:
			return "rate_limited"
		case apiErr.Code >= 500:
			return "http_5xx"
		default:
			return "http_4xx"
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	return "unknown"
}
