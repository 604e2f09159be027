package notify

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/matsen/paperfeed/internal/digest"
)

// DefaultSheetRange is where rows are appended when no range is configured.
const DefaultSheetRange = "Sheet1!A1"

// SheetsSink appends one row per digest entry to a Google Sheet.
type SheetsSink struct {
	SpreadsheetID string
	Range         string
	svc           *sheets.Service
}

// NewSheetsSink authenticates with a service-account key file.
func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID, rng string) (*SheetsSink, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return NewSheetsSinkWithOptions(ctx, spreadsheetID, rng, option.WithHTTPClient(conf.Client(ctx)))
}

// NewSheetsSinkWithOptions builds the Sheets service from explicit client
// options.
func NewSheetsSinkWithOptions(ctx context.Context, spreadsheetID, rng string, opts ...option.ClientOption) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	if rng == "" {
		rng = DefaultSheetRange
	}
	return &SheetsSink{SpreadsheetID: spreadsheetID, Range: rng, svc: svc}, nil
}

func (s *SheetsSink) Name() string { return "sheets" }

// Send appends the digest rows.
func (s *SheetsSink) Send(ctx context.Context, d *digest.Digest) error {
	vr := &sheets.ValueRange{Values: SheetRows(d)}
	_, err := s.svc.Spreadsheets.Values.Append(s.SpreadsheetID, s.Range, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to spreadsheet: %w", err)
	}
	return nil
}

// SheetRows renders one row per entry: date, rank, arXiv id, title,
// authors, relevance, TLDR, abstract URL, code URL. An empty digest yields a
// single row noting it.
func SheetRows(d *digest.Digest) [][]interface{} {
	date := d.Date.Format(dateLayout)
	if d.Empty() {
		return [][]interface{}{{date, 0, "", emptyMessage}}
	}

	rows := make([][]interface{}, 0, len(d.Entries))
	for _, e := range d.Entries {
		rows = append(rows, []interface{}{
			date,
			e.Rank,
			e.ID,
			e.Title,
			digest.FormatAuthors(e.Authors),
			fmt.Sprintf("%.1f", e.Relevance()),
			e.TLDR,
			e.AbsURL(),
			e.CodeURL,
		})
	}
	return rows
}
