package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/shopspring/decimal"
)

// PopulationSource supplies yearly age-bucket populations.
type PopulationSource interface {
	Fetch(ctx context.Context, years []int) (domain.YearlyBuckets, error)
}

// PyramidFetcher downloads yearly age pyramids as CSV (columns Age, M, F) from
// {BaseURL}{year}/?csv=true and sums both sexes per bucket.
type PyramidFetcher struct {
	Client  *http.Client
	BaseURL string
	Logger  *slog.Logger
}

// NewPyramidFetcher creates a fetcher with a 30s timeout client.
func NewPyramidFetcher(baseURL string, logger *slog.Logger) *PyramidFetcher {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PyramidFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: baseURL,
		Logger:  logger,
	}
}

// Years returns the inclusive year range from..to.
func Years(from, to int) []int {
	if to < from {
		return nil
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

// Fetch downloads every year in order. Any failed year fails the whole fetch.
func (f *PyramidFetcher) Fetch(ctx context.Context, years []int) (domain.YearlyBuckets, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("pyramid fetch: no years requested")
	}
	out := make(domain.YearlyBuckets, len(years))
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buckets, err := f.fetchYear(ctx, year)
		if err != nil {
			return nil, err
		}
		for label, count := range buckets {
			out.Add(year, label, count)
		}
		f.Logger.Debug("fetched population pyramid", "year", year, "buckets", len(buckets))
	}
	return out, nil
}

func (f *PyramidFetcher) fetchYear(ctx context.Context, year int) (map[string]int64, error) {
	u := fmt.Sprintf("%s%d/?csv=true", f.BaseURL, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pyramid fetch %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pyramid fetch %d: status %d, body: %s", year, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	buckets, err := ParsePyramidCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pyramid fetch %d: %w", year, err)
	}
	return buckets, nil
}

// ParsePyramidCSV reads one year's pyramid and returns label -> M+F.
func ParsePyramidCSV(r io.Reader) (map[string]int64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse pyramid csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("parse pyramid csv: no data rows")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	ageCol, maleCol, femaleCol := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Age":
			ageCol = i
		case "M":
			maleCol = i
		case "F":
			femaleCol = i
		}
	}
	if ageCol < 0 || maleCol < 0 || femaleCol < 0 {
		return nil, fmt.Errorf("parse pyramid csv: header %v lacks Age, M, F", header)
	}

	out := make(map[string]int64, len(records)-1)
	for line, rec := range records[1:] {
		label := strings.TrimSpace(rec[ageCol])
		if label == "" {
			continue
		}
		male, err := parseHeadcount(rec[maleCol])
		if err != nil {
			return nil, fmt.Errorf("parse pyramid csv line %d: M: %w", line+2, err)
		}
		female, err := parseHeadcount(rec[femaleCol])
		if err != nil {
			return nil, fmt.Errorf("parse pyramid csv line %d: F: %w", line+2, err)
		}
		out[label] += male + female
	}
	return out, nil
}

// parseHeadcount accepts integers and integral decimals such as "1234.0".
func parseHeadcount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("headcount %s is not a whole number", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("headcount %s is negative", s)
	}
	return d.IntPart(), nil
}
