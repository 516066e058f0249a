// Package matrixio reads and writes TOPSIS decision matrices as CSV.
//
// The layout is the classic one: a header row, the alternative label in the
// first column and one numeric column per criterion.
package matrixio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/modelrank/internal/domain/topsis"
)

// Output column names appended by Write.
const (
	ScoreColumn = "Topsis Score"
	RankColumn  = "Rank"
)

// Table is a parsed decision matrix.
type Table struct {
	// Header holds every column name, label column first.
	Header []string
	Labels []string
	// Rows[i] holds the criterion values of Labels[i].
	Rows [][]float64
}

// Criteria returns the criterion column names.
func (t Table) Criteria() []string {
	if len(t.Header) == 0 {
		return nil
	}
	return t.Header[1:]
}

// Alternatives pairs every label with its row.
func (t Table) Alternatives() []topsis.Alternative {
	out := make([]topsis.Alternative, len(t.Rows))
	for i := range t.Rows {
		out[i] = topsis.Alternative{Label: t.Labels[i], Values: t.Rows[i]}
	}
	return out
}

// Read parses a decision matrix. Every data row must have as many fields as
// the header.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmpty
	}
	if err != nil {
		return Table{}, fmt.Errorf("matrixio: read header: %w", err)
	}
	if len(header) < 2 {
		return Table{}, fmt.Errorf("%w: got %d", ErrTooFewColumns, len(header))
	}

	t := Table{Header: slices.Clone(header)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("matrixio: read row %d: %w", line, err)
		}
		row := make([]float64, len(rec)-1)
		for j, raw := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return Table{}, &CellError{Row: line, Column: j + 2, Value: raw}
			}
			row[j] = v
		}
		t.Labels = append(t.Labels, rec[0])
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return Table{}, ErrNoRows
	}
	return t, nil
}

// Write emits the input columns followed by the score and rank of each row.
// Rows keep input order unless sorted is set, in which case they are written
// best first.
func Write(w io.Writer, t Table, res topsis.Result, sorted bool) error {
	if len(res.Scores) != len(t.Rows) || len(res.Ranks) != len(t.Rows) {
		return fmt.Errorf("matrixio: result covers %d rows, table has %d", len(res.Scores), len(t.Rows))
	}

	order := res.Order
	if !sorted || len(order) != len(t.Rows) {
		order = make([]int, len(t.Rows))
		for i := range order {
			order[i] = i
		}
	}

	cw := csv.NewWriter(w)
	header := append(slices.Clone(t.Header), ScoreColumn, RankColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("matrixio: write header: %w", err)
	}
	for _, i := range order {
		rec := make([]string, 0, len(header))
		rec = append(rec, t.Labels[i])
		for _, v := range t.Rows[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec,
			strconv.FormatFloat(res.Scores[i], 'f', 6, 64),
			strconv.Itoa(res.Ranks[i]),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("matrixio: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("matrixio: flush: %w", err)
	}
	return nil
}

// ParseWeights parses a comma-separated weight list such as "1,1,2".
func ParseWeights(s string) ([]float64, error) {
	parts, err := splitList(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: weight %d is %q", ErrBadList, i+1, p)
		}
		out[i] = v
	}
	return out, nil
}

// ParseImpacts parses a comma-separated impact list such as "+,-,+".
func ParseImpacts(s string) ([]topsis.Impact, error) {
	parts, err := splitList(s)
	if err != nil {
		return nil, err
	}
	return topsis.ParseImpacts(parts)
}

func splitList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadList)
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return nil, fmt.Errorf("%w: item %d is empty", ErrBadList, i+1)
		}
	}
	return parts, nil
}
