package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"stockIndicators/internal/domain"
)

var priceHeader = []string{"time", "open", "high", "low", "close", "volume"}

// WritePricePointsToCSV writes points with an RFC3339 time column. Absent
// values are written as empty cells.
func WritePricePointsToCSV(points []domain.PricePoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(priceHeader); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			p.Time.UTC().Format(time.RFC3339),
			p.Open.String(),
			p.High.String(),
			p.Low.String(),
			p.Close.String(),
			p.Volume.String(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadPricePointsFromCSV reads a file written by WritePricePointsToCSV.
// Columns are matched by header name, so extra columns and any column order
// are accepted; only time is mandatory.
func ReadPricePointsFromCSV(filename string) ([]domain.PricePoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadPricePoints(file)
}

// ReadPricePoints parses price CSV from r.
func ReadPricePoints(r io.Reader) ([]domain.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV: missing header")
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	timeCol, ok := cols["time"]
	if !ok {
		return nil, fmt.Errorf("CSV header has no time column")
	}

	var points []domain.PricePoint
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		t, err := parseTime(cell(record, timeCol))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p := domain.PricePoint{Time: t}
		for _, f := range []struct {
			name string
			dst  *domain.Float
		}{
			{"open", &p.Open},
			{"high", &p.High},
			{"low", &p.Low},
			{"close", &p.Close},
			{"volume", &p.Volume},
		} {
			idx, ok := cols[f.name]
			if !ok {
				continue
			}
			if *f.dst, err = parseFloat(cell(record, idx)); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, f.name, err)
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// WriteDerivedToCSV writes a derived series as time,value,signal.
func WriteDerivedToCSV(points []domain.DerivedPoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"time", "value", "signal"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			p.Time.UTC().Format(time.RFC3339),
			p.Value.String(),
			p.Signal.String(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloat(s string) (domain.Float, error) {
	if s == "" {
		return domain.None(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.None(), err
	}
	return domain.Some(v), nil
}

// parseTime accepts RFC3339 or unix milliseconds.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}
