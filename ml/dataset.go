package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Dataset holds feature rows in FeatureNames order. Missing feature values
// are NaN; labels are always present.
type Dataset struct {
	Source   string
	Features []string
	X        [][]float64
	Y        []int
}

// ReadOptions controls how a dataset file is decoded.
type ReadOptions struct {
	// Encoding is a WHATWG encoding label such as "utf-8", "latin1" or "gbk".
	Encoding  string
	Delimiter rune
}

var missingTokens = map[string]bool{
	"":     true,
	"?":    true,
	"na":   true,
	"nan":  true,
	"null": true,
}

// ReadDataset reads the dataset at path.
func ReadDataset(path string, opts ReadOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	ds, err := ParseDataset(file, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ds.Source = path
	return ds, nil
}

// ParseDataset reads a header row and labeled rows from r.
func ParseDataset(r io.Reader, opts ReadOptions) (*Dataset, error) {
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", opts.Encoding, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}

	labelIdx, ok := columns[TargetColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TargetColumn)
	}
	names := FeatureNames()
	featureIdx := make([]int, len(names))
	for i, name := range names {
		idx, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		featureIdx[i] = idx
	}

	ds := &Dataset{Features: names}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(names))
		for i, idx := range featureIdx {
			value, err := parseValue(record[idx])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, names[i], err)
			}
			row[i] = value
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label)
	}

	if len(ds.X) == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

func parseValue(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if missingTokens[strings.ToLower(raw)] {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseLabel(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if missingTokens[strings.ToLower(raw)] {
		return 0, ErrMissingLabel
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, raw)
	}
	switch value {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, raw)
	}
}

// Rows returns the sub-dataset at the given row indices.
func (d *Dataset) Rows(indices []int) ([][]float64, []int) {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = d.X[idx]
		y[i] = d.Y[idx]
	}
	return x, y
}
