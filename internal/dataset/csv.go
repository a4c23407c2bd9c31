// Package dataset loads price series from raw tabular (CSV) bytes.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"montecarlo-lab/internal/domain"
)

// ErrDataFormat is returned when the raw bytes cannot be parsed into a
// usable price series: no header, no recognizable price column, or a date
// column that yields no valid timestamps.
var ErrDataFormat = errors.New("data format error")

// Price column headers, in preference order. Matching is case-insensitive
// after trimming whitespace and normalizing separators to underscores.
var priceHeaders = []string{"close", "adj_close", "adjusted_close"}

// Date column headers, in preference order.
var dateHeaders = []string{"date", "datetime", "timestamp", "time"}

// Date layouts tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// Load parses raw CSV bytes into a PriceSeries. The price column is detected
// case-insensitively ("close" preferred over adjusted variants). When a date
// column is present the series is sorted ascending by timestamp regardless of
// input order; without one the series is unindexed and keeps input order.
func Load(raw []byte) (*domain.PriceSeries, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrDataFormat, err)
	}

	priceCol := findColumn(header, priceHeaders)
	if priceCol < 0 {
		return nil, fmt.Errorf("%w: no close or adjusted close column in header %v", ErrDataFormat, header)
	}
	dateCol := findColumn(header, dateHeaders)

	type row struct {
		tsMs  int64
		price float64
	}
	var rows []row
	validDates := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrDataFormat, err)
		}
		if priceCol >= len(record) {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[priceCol]), 64)
		if err != nil {
			// Tolerate stray non-numeric rows (footers, blank lines).
			continue
		}

		r := row{price: price}
		if dateCol >= 0 && dateCol < len(record) {
			if ts, ok := parseDate(strings.TrimSpace(record[dateCol])); ok {
				r.tsMs = ts
				validDates++
			} else {
				continue
			}
		}
		rows = append(rows, r)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no parseable price rows", ErrDataFormat)
	}
	if dateCol >= 0 && validDates == 0 {
		return nil, fmt.Errorf("%w: date column %q has no valid timestamps", ErrDataFormat, header[dateCol])
	}

	series := &domain.PriceSeries{Prices: make([]float64, 0, len(rows))}
	if dateCol >= 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].tsMs < rows[j].tsMs })
		series.TimestampsMs = make([]int64, 0, len(rows))
		for _, r := range rows {
			series.TimestampsMs = append(series.TimestampsMs, r.tsMs)
			series.Prices = append(series.Prices, r.price)
		}
	} else {
		for _, r := range rows {
			series.Prices = append(series.Prices, r.price)
		}
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	return series, nil
}

// findColumn returns the index of the first header matching any candidate,
// honoring candidate preference order. Returns -1 when none match.
func findColumn(header []string, candidates []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}
	for _, want := range candidates {
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader lowercases a header and collapses spaces, dashes and dots
// to underscores so "Adj Close" and "adj.close" both match "adj_close".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, "\uFEFF") // strip BOM on the first header
	replacer := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return replacer.Replace(h)
}

// parseDate tries the known layouts and returns Unix milliseconds (UTC).
func parseDate(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), true
		}
	}
	return 0, false
}
