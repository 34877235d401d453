package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrDisallowed is returned when robots.txt forbids fetching the index page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// CompanyScraper extracts one identifier column from the first matching HTML table of a page
type CompanyScraper struct {
	fetcher *Fetcher
	robots  *RobotsChecker
	logger  *zap.Logger
}

// NewCompanyScraper creates a scraper; robots may be nil to skip the robots.txt check
func NewCompanyScraper(fetcher *Fetcher, robots *RobotsChecker, logger *zap.Logger) *CompanyScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyScraper{fetcher: fetcher, robots: robots, logger: logger}
}

// Scrape fetches the page and returns the values of column from the first table that has it
func (s *CompanyScraper) Scrape(ctx context.Context, pageURL, column string) ([]string, error) {
	if s.robots != nil {
		allowed, _, err := s.robots.CanFetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
		}
	}

	result, err := s.fetcher.FetchWithRetry(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, err
	}

	values, err := TableColumn(bytes.NewReader(result.Body), column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pageURL, err)
	}
	s.logger.Info("scraped company index",
		zap.String("url", pageURL),
		zap.String("column", column),
		zap.Int("rows", len(values)))
	return values, nil
}

// TableColumn returns the cells under the header named column in the first
// table whose header row contains it. Empty cells are skipped.
func TableColumn(r io.Reader, column string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	want := strings.ToLower(strings.TrimSpace(column))
	var values []string
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		col := -1
		rows.First().Find("th, td").EachWithBreak(func(j int, cell *goquery.Selection) bool {
			if strings.ToLower(strings.TrimSpace(cell.Text())) == want {
				col = j
				return false
			}
			return true
		})
		if col < 0 {
			return true
		}

		found = true
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cell := row.Find("th, td").Eq(col)
			if text := strings.TrimSpace(cell.Text()); text != "" {
				values = append(values, text)
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no table with a %q column", column)
	}
	return values, nil
}

// WriteColumnCSV writes a single-column CSV with a header
func WriteColumnCSV(w io.Writer, header string, values []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{header}); err != nil {
		return err
	}
	for _, v := range values {
		if err := cw.Write([]string{v}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteColumnFile writes a single-column CSV to path
func WriteColumnFile(path, header string, values []string) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteColumnCSV(w, header, values)
	})
}
