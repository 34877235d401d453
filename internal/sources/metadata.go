package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ProjectMetadata copies the named columns of a filing metadata CSV, in the
// given order. Header names are matched case-insensitively; a missing column
// is an error. It returns the number of data rows written.
func ProjectMetadata(r io.Reader, w io.Writer, columns []string) (int, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to project")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("metadata file is empty")
		}
		return 0, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}
	pick := make([]int, len(columns))
	for i, c := range columns {
		j, ok := index[normalizeHeader(c)]
		if !ok {
			return 0, fmt.Errorf("metadata has no column %q", c)
		}
		pick[i] = j
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, err
	}

	rows := 0
	out := make([]string, len(pick))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		for i, j := range pick {
			out[i] = ""
			if j < len(rec) {
				out[i] = rec[j]
			}
		}
		if err := cw.Write(out); err != nil {
			return rows, err
		}
		rows++
	}

	cw.Flush()
	return rows, cw.Error()
}

// ProjectMetadataFile projects src into dst
func ProjectMetadataFile(src, dst string, columns []string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open metadata: %w", err)
	}
	defer func() { _ = in.Close() }()

	var rows int
	err = writeFile(dst, func(w io.Writer) error {
		var err error
		rows, err = ProjectMetadata(in, w, columns)
		return err
	})
	return rows, err
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
