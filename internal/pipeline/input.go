package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/finsent/internal/model"
)

// Reader decodes filing records from one input format
type Reader interface {
	// Name returns the format name
	Name() string

	// CanRead checks if this reader handles the file, by extension
	CanRead(path string) bool

	// Read decodes every record of the input
	Read(r io.Reader) ([]model.FilingRecord, error)
}

// Registry selects a Reader for an input file
type Registry struct {
	readers []Reader
}

// NewRegistry creates a registry with the JSON, JSONL and CSV readers
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(jsonReader{})
	registry.Register(jsonlReader{})
	registry.Register(csvReader{})
	return registry
}

// Register registers a reader; earlier registrations win
func (r *Registry) Register(reader Reader) {
	r.readers = append(r.readers, reader)
}

// FindReader returns the first reader that can handle path
func (r *Registry) FindReader(path string) (Reader, error) {
	for _, reader := range r.readers {
		if reader.CanRead(path) {
			return reader, nil
		}
	}
	return nil, fmt.Errorf("no reader for %q (want .json, .jsonl, .ndjson or .csv)", filepath.Base(path))
}

// ReadFile decodes the filings stored at path
func (r *Registry) ReadFile(path string) ([]model.FilingRecord, error) {
	reader, err := r.FindReader(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filings: %w", err)
	}
	defer func() { _ = file.Close() }()

	filings, err := reader.Read(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("read %s filings: %w", reader.Name(), err)
	}
	return filings, nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// field accepts a JSON string, number or null
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = field(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("want string or number, got %s", data)
		}
		*f = field(n.String())
	}
	return nil
}

type rawFiling struct {
	CIK            field  `json:"cik"`
	Company        string `json:"company"`
	Year           field  `json:"year"`
	Filename       string `json:"filename"`
	PeriodOfReport string `json:"period_of_report"`
	RiskFactors    string `json:"item_1A"`
	MDA            string `json:"item_7"`
	MarketRisk     string `json:"item_7A"`
}

func (raw rawFiling) filing() (model.FilingRecord, error) {
	cik := strings.TrimSpace(string(raw.CIK))
	if cik == "" {
		return model.FilingRecord{}, errors.New("missing cik")
	}
	year, err := parseYear(string(raw.Year))
	if err != nil {
		return model.FilingRecord{}, fmt.Errorf("cik %s: %w", cik, err)
	}
	return model.FilingRecord{
		CIK:            cik,
		Company:        strings.TrimSpace(raw.Company),
		Year:           year,
		Filename:       raw.Filename,
		PeriodOfReport: raw.PeriodOfReport,
		Sections: map[model.Section]string{
			model.SectionRiskFactors: raw.RiskFactors,
			model.SectionMDA:         raw.MDA,
			model.SectionMarketRisk:  raw.MarketRisk,
		},
	}, nil
}

// parseYear accepts "2020" and the "2020.0" spelling of dataframe exports
func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing year")
	}
	if year, err := strconv.Atoi(raw); err == nil {
		return year, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return int(f), nil
}

// jsonReader reads a JSON array of records
type jsonReader struct{}

func (jsonReader) Name() string { return "json" }

func (jsonReader) CanRead(path string) bool { return hasExt(path, ".json") }

func (jsonReader) Read(r io.Reader) ([]model.FilingRecord, error) {
	var raws []rawFiling
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, err
	}
	filings := make([]model.FilingRecord, 0, len(raws))
	for i, raw := range raws {
		f, err := raw.filing()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		filings = append(filings, f)
	}
	return filings, nil
}

// jsonlReader reads one JSON record per line
type jsonlReader struct{}

func (jsonlReader) Name() string { return "jsonl" }

func (jsonlReader) CanRead(path string) bool { return hasExt(path, ".jsonl", ".ndjson") }

func (jsonlReader) Read(r io.Reader) ([]model.FilingRecord, error) {
	dec := json.NewDecoder(r)
	var filings []model.FilingRecord
	for n := 1; ; n++ {
		var raw rawFiling
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		f, err := raw.filing()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		filings = append(filings, f)
	}
	return filings, nil
}

// csvReader reads records with a header row; header names are case-insensitive
type csvReader struct{}

func (csvReader) Name() string { return "csv" }

func (csvReader) CanRead(path string) bool { return hasExt(path, ".csv") }

func (csvReader) Read(r io.Reader) ([]model.FilingRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := headerIndex(header)
	if _, ok := index["cik"]; !ok {
		return nil, errors.New("header has no cik column")
	}

	var filings []model.FilingRecord
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		get := func(name string) string {
			if i, ok := index[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		raw := rawFiling{
			CIK:            field(get("cik")),
			Company:        get("company"),
			Year:           field(get("year")),
			Filename:       get("filename"),
			PeriodOfReport: get("period_of_report"),
			RiskFactors:    get("item_1a"),
			MDA:            get("item_7"),
			MarketRisk:     get("item_7a"),
		}
		f, err := raw.filing()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		filings = append(filings, f)
	}
	return filings, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}

// ReadIdentifiers reads company identifiers from a file: one per line or the
// first column of a CSV. Blank lines, # comments and a "CIK" header are skipped.
func ReadIdentifiers(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, _, _ := strings.Cut(line, ",")
		id = NormalizeCIK(strings.Trim(strings.TrimSpace(id), `"`))
		if id == "" || strings.EqualFold(id, "cik") {
			continue
		}

		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}

// NormalizeCIK drops the zero padding EDGAR uses ("0000066740" -> "66740")
func NormalizeCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if cik == "" {
		return ""
	}
	if trimmed := strings.TrimLeft(cik, "0"); trimmed != "" {
		return trimmed
	}
	return "0"
}

// FilterByCIK keeps the filings whose CIK is in ids, in input order
func FilterByCIK(filings []model.FilingRecord, ids []string) []model.FilingRecord {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[NormalizeCIK(id)] = true
	}
	var out []model.FilingRecord
	for _, f := range filings {
		if keep[NormalizeCIK(f.CIK)] {
			out = append(out, f)
		}
	}
	return out
}

// LoadCompanies reads a CIK to company name map from a metadata CSV with
// "CIK" and "Company" columns. The first name seen for a CIK wins.
func LoadCompanies(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer func() { _ = file.Close() }()

	cr := csv.NewReader(bufio.NewReader(file))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read metadata header: %w", err)
	}
	index := headerIndex(header)
	cikCol, ok1 := index["cik"]
	nameCol, ok2 := index["company"]
	if !ok1 || !ok2 {
		return nil, errors.New("metadata needs CIK and Company columns")
	}

	companies := make(map[string]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		if cikCol >= len(rec) || nameCol >= len(rec) {
			continue
		}
		cik := NormalizeCIK(rec[cikCol])
		name := strings.TrimSpace(rec[nameCol])
		if cik == "" || name == "" {
			continue
		}
		if _, ok := companies[cik]; !ok {
			companies[cik] = name
		}
	}
	return companies, nil
}

// JoinCompanies fills missing company names by CIK and returns how many were filled
func JoinCompanies(filings []model.FilingRecord, companies map[string]string) int {
	filled := 0
	for i := range filings {
		if filings[i].Company != "" {
			continue
		}
		if name, ok := companies[NormalizeCIK(filings[i].CIK)]; ok {
			filings[i].Company = name
			filled++
		}
	}
	return filled
}
