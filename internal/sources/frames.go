package sources

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/finsent/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FrameColumns are the columns of a metric CSV
var FrameColumns = []string{"accn", "cik", "entityName", "loc", "end", "val", "year", "metric"}

// FrameRow is one reported value of a concept for one calendar year
type FrameRow struct {
	Accn       string
	CIK        string
	EntityName string
	Loc        string
	End        string
	Val        string // kept as the decimal text the API sent
	Year       int
	Metric     string // human-readable concept name
}

// Record returns the row matching FrameColumns
func (r FrameRow) Record() []string {
	return []string{r.Accn, r.CIK, r.EntityName, r.Loc, r.End, r.Val, strconv.Itoa(r.Year), r.Metric}
}

type framePayload struct {
	Data []struct {
		Accn       string      `json:"accn"`
		CIK        json.Number `json:"cik"`
		EntityName string      `json:"entityName"`
		Loc        string      `json:"loc"`
		End        string      `json:"end"`
		Val        json.Number `json:"val"`
	} `json:"data"`
}

const frameAccept = "application/json"

// FrameFetcher downloads XBRL frames, one request per (concept, year)
type FrameFetcher struct {
	fetcher *Fetcher
	cfg     model.MetricsConfig
	logger  *zap.Logger
}

// NewFrameFetcher creates a frames fetcher
func NewFrameFetcher(fetcher *Fetcher, cfg model.MetricsConfig, logger *zap.Logger) *FrameFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameFetcher{fetcher: fetcher, cfg: cfg, logger: logger}
}

// URL returns the frames endpoint for a concept and calendar year
func (f *FrameFetcher) URL(concept string, year int) string {
	unit := f.cfg.Unit
	if unit == "" {
		unit = "USD"
	}
	return fmt.Sprintf("%s/%s/%s/CY%d.json", strings.TrimRight(f.cfg.BaseURL, "/"), concept, unit, year)
}

// FetchConcept collects every year of one concept. Failed requests and
// malformed payloads are logged and contribute no rows.
func (f *FrameFetcher) FetchConcept(ctx context.Context, concept model.Concept) ([]FrameRow, error) {
	name := concept.Name
	if name == "" {
		name = concept.Tag
	}

	var rows []FrameRow
	for year := f.cfg.StartYear; year <= f.cfg.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url := f.URL(concept.Tag, year)
		result, err := f.fetcher.FetchWithRetry(ctx, url, frameAccept)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("skipping frame", zap.String("url", url), zap.Error(err))
			continue
		}

		var payload framePayload
		if err := json.Unmarshal(result.Body, &payload); err != nil {
			f.logger.Warn("skipping malformed frame", zap.String("url", url), zap.Error(err))
			f.fetcher.Forget(url, frameAccept)
			continue
		}

		for _, d := range payload.Data {
			rows = append(rows, FrameRow{
				Accn:       d.Accn,
				CIK:        d.CIK.String(),
				EntityName: d.EntityName,
				Loc:        d.Loc,
				End:        d.End,
				Val:        d.Val.String(),
				Year:       year,
				Metric:     name,
			})
		}
		f.logger.Debug("fetched frame",
			zap.String("concept", concept.Tag),
			zap.Int("year", year),
			zap.Int("rows", len(payload.Data)),
			zap.Bool("cached", result.Cached))
	}
	return rows, nil
}

// Run fetches every configured concept concurrently and writes one CSV per concept
// into the output directory. It returns the written paths in concept order.
func (f *FrameFetcher) Run(ctx context.Context) ([]string, error) {
	if len(f.cfg.Concepts) == 0 {
		return nil, fmt.Errorf("no concepts configured")
	}
	if f.cfg.StartYear > f.cfg.EndYear {
		return nil, fmt.Errorf("start year %d is after end year %d", f.cfg.StartYear, f.cfg.EndYear)
	}
	if err := os.MkdirAll(f.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, len(f.cfg.Concepts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.cfg.Workers, 1))

	for i, concept := range f.cfg.Concepts {
		g.Go(func() error {
			rows, err := f.FetchConcept(ctx, concept)
			if err != nil {
				return fmt.Errorf("%s: %w", concept.Tag, err)
			}

			path := filepath.Join(f.cfg.OutputDir, concept.Tag+".csv")
			if err := writeFile(path, func(w io.Writer) error { return WriteFrameCSV(w, rows) }); err != nil {
				return fmt.Errorf("%s: %w", concept.Tag, err)
			}
			paths[i] = path

			f.logger.Info("wrote metric file",
				zap.String("concept", concept.Tag),
				zap.String("path", path),
				zap.Int("rows", len(rows)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// WriteFrameCSV writes rows with a header
func WriteFrameCSV(w io.Writer, rows []FrameRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FrameColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile writes through a temporary file in the same directory
func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
