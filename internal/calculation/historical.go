package calculation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// Default input file names inside the data directory.
const (
	DefaultPopulationFile = "population.csv"
	DefaultCPIFile        = "cpi.csv"
	DefaultMarketFile     = "sp500.csv"
	DefaultFundFile       = "fund.csv"
)

// SeriesStatistics is a descriptive summary of a loaded monthly series.
type SeriesStatistics struct {
	Name          string           `json:"name"`
	Count         int              `json:"count"`
	First         dateutil.Month   `json:"first"`
	Last          dateutil.Month   `json:"last"`
	Mean          decimal.Decimal  `json:"mean"`
	StdDev        decimal.Decimal  `json:"std_dev"`
	Min           decimal.Decimal  `json:"min"`
	Max           decimal.Decimal  `json:"max"`
	MissingMonths []dateutil.Month `json:"missing_months,omitempty"`
}

// HistoricalDataManager loads the CSV inputs of a projection from a data directory.
type HistoricalDataManager struct {
	Settings domain.DataSettings
	Buckets  domain.YearlyBuckets
	CPI      domain.Series
	Market   domain.Series
	Reserves []domain.YearlyAmount
	IsLoaded bool
}

// NewHistoricalDataManager creates a manager for the given data settings. Empty file names
// fall back to the defaults; an empty fund file name is only defaulted when the file exists.
func NewHistoricalDataManager(settings domain.DataSettings) *HistoricalDataManager {
	if settings.PopulationFile == "" {
		settings.PopulationFile = DefaultPopulationFile
	}
	if settings.CPIFile == "" {
		settings.CPIFile = DefaultCPIFile
	}
	if settings.MarketFile == "" {
		settings.MarketFile = DefaultMarketFile
	}
	if settings.FundFile == "" {
		if _, err := os.Stat(filepath.Join(settings.Dir, DefaultFundFile)); err == nil {
			settings.FundFile = DefaultFundFile
		}
	}
	return &HistoricalDataManager{Settings: settings}
}

func (hdm *HistoricalDataManager) path(name string) string {
	return filepath.Join(hdm.Settings.Dir, name)
}

// LoadAllData loads population buckets, CPI, market prices and, when configured, fund reserves.
func (hdm *HistoricalDataManager) LoadAllData() error {
	if hdm.IsLoaded {
		return nil
	}

	buckets, err := ReadBucketsCSV(hdm.path(hdm.Settings.PopulationFile))
	if err != nil {
		return fmt.Errorf("failed to load population data: %w", err)
	}
	cpi, err := ReadSeriesCSV(hdm.path(hdm.Settings.CPIFile), "cpi")
	if err != nil {
		return fmt.Errorf("failed to load CPI data: %w", err)
	}
	market, err := ReadSeriesCSV(hdm.path(hdm.Settings.MarketFile), "price")
	if err != nil {
		return fmt.Errorf("failed to load market data: %w", err)
	}
	if hdm.Settings.FundFile != "" {
		reserves, err := ReadReservesCSV(hdm.path(hdm.Settings.FundFile))
		if err != nil {
			return fmt.Errorf("failed to load fund data: %w", err)
		}
		hdm.Reserves = reserves
	}

	hdm.Buckets = buckets
	hdm.CPI = cpi
	hdm.Market = market
	hdm.IsLoaded = true
	return nil
}

// Inputs returns the loaded data in the form the engine consumes.
func (hdm *HistoricalDataManager) Inputs() (*Inputs, error) {
	if !hdm.IsLoaded {
		return nil, errors.New("historical data not loaded")
	}
	return &Inputs{
		Buckets:      hdm.Buckets,
		CPI:          hdm.CPI,
		Market:       hdm.Market,
		FundReserves: hdm.Reserves,
	}, nil
}

// Statistics summarizes the CPI and market series.
func (hdm *HistoricalDataManager) Statistics() ([]SeriesStatistics, error) {
	if !hdm.IsLoaded {
		return nil, errors.New("historical data not loaded")
	}
	return []SeriesStatistics{
		CalculateStatistics("cpi", hdm.CPI),
		CalculateStatistics("market", hdm.Market),
	}, nil
}

// ValidateDataQuality reports problems that do not stop loading but will stop a run whose
// window touches them.
func (hdm *HistoricalDataManager) ValidateDataQuality() ([]string, error) {
	stats, err := hdm.Statistics()
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, s := range stats {
		if len(s.MissingMonths) > 0 {
			issues = append(issues, fmt.Sprintf("%s is missing %d month(s), first %s", s.Name, len(s.MissingMonths), s.MissingMonths[0]))
		}
		if !s.Min.IsPositive() {
			issues = append(issues, fmt.Sprintf("%s has non-positive values (min %s)", s.Name, s.Min))
		}
	}
	if years := hdm.Buckets.Years(); len(years) < 2 {
		issues = append(issues, fmt.Sprintf("population has %d year(s), need at least 2", len(years)))
	}
	return issues, nil
}

// CalculateStatistics computes descriptive statistics for a series.
func CalculateStatistics(name string, s domain.Series) SeriesStatistics {
	stats := SeriesStatistics{Name: name, Count: len(s)}
	if len(s) == 0 {
		return stats
	}
	stats.First = s[0].Month
	stats.Last = s[len(s)-1].Month
	stats.Min = s[0].Value
	stats.Max = s[0].Value

	var sum decimal.Decimal
	for i, p := range s {
		sum = sum.Add(p.Value)
		stats.Min = decimal.Min(stats.Min, p.Value)
		stats.Max = decimal.Max(stats.Max, p.Value)
		if i > 0 {
			for m := s[i-1].Month.Next(); m.Before(p.Month); m = m.Next() {
				stats.MissingMonths = append(stats.MissingMonths, m)
			}
		}
	}
	n := decimal.NewFromInt(int64(len(s)))
	stats.Mean = sum.Div(n)

	var varianceSum decimal.Decimal
	for _, p := range s {
		diff := p.Value.Sub(stats.Mean)
		varianceSum = varianceSum.Add(diff.Mul(diff))
	}
	variance, _ := varianceSum.Div(n).Float64()
	stats.StdDev = decimal.NewFromFloat(math.Sqrt(variance))
	return stats
}

// readCSV reads a whole file and returns its header and records.
func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// ReadSeriesCSV reads a monthly level series from a file with a "date" column and a value
// column. Rows are sorted by month; duplicate months are rejected.
func ReadSeriesCSV(path, valueColumn string) (domain.Series, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	dateCol, valueCol := columnIndex(header, "date"), columnIndex(header, valueColumn)
	if dateCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("invalid CSV format in %s: expected columns date,%s", path, valueColumn)
	}

	series := make(domain.Series, 0, len(records))
	for i, record := range records {
		line := i + 2
		if len(record) <= dateCol || len(record) <= valueCol {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, line, len(header), len(record))
		}
		month, err := dateutil.ParseMonth(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(record[valueCol]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid %s %q: %w", path, line, valueColumn, record[valueCol], err)
		}
		series = append(series, domain.SeriesPoint{Month: month, Value: value})
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Month.Before(series[j].Month) })
	for i := 1; i < len(series); i++ {
		if series[i].Month == series[i-1].Month {
			return nil, &MisalignedSeriesError{Month: series[i].Month, Field: valueColumn, Reason: "duplicated"}
		}
	}
	return series, nil
}

// ReadReservesCSV reads yearly fund reserves (in millions) from a file with "year" and
// "reserves" columns. Other columns are ignored.
func ReadReservesCSV(path string) ([]domain.YearlyAmount, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	yearCol, reservesCol := columnIndex(header, "year"), columnIndex(header, "reserves")
	if yearCol < 0 || reservesCol < 0 {
		return nil, fmt.Errorf("invalid CSV format in %s: expected columns year,reserves", path)
	}

	out := make([]domain.YearlyAmount, 0, len(records))
	for i, record := range records {
		line := i + 2
		if len(record) <= yearCol || len(record) <= reservesCol {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, line, len(header), len(record))
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[yearCol]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid year %q", path, line, record[yearCol])
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(record[reservesCol]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid reserves %q: %w", path, line, record[reservesCol], err)
		}
		out = append(out, domain.YearlyAmount{Year: year, Amount: amount})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// ReadBucketsCSV reads yearly age buckets in wide form: a "year" column followed by one
// column per bucket label ("0-4", ..., "100+"). Empty cells mean the bucket is not reported.
func ReadBucketsCSV(path string) (domain.YearlyBuckets, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	yearCol := columnIndex(header, "year")
	if yearCol < 0 || len(header) < 2 {
		return nil, fmt.Errorf("invalid CSV format in %s: expected a year column and bucket columns", path)
	}

	buckets := make(domain.YearlyBuckets)
	for i, record := range records {
		line := i + 2
		year, err := strconv.Atoi(strings.TrimSpace(record[yearCol]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid year %q", path, line, record[yearCol])
		}
		for c, label := range header {
			if c == yearCol || c >= len(record) || strings.TrimSpace(record[c]) == "" {
				continue
			}
			count, err := parseCount(record[c])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bucket %s: %w", path, line, label, err)
			}
			buckets.Add(year, label, count)
		}
	}
	return buckets, nil
}

// WriteBucketsCSV writes yearly buckets in the wide form ReadBucketsCSV reads.
func WriteBucketsCSV(w io.Writer, buckets domain.YearlyBuckets) error {
	labels := bucketLabels(buckets)
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{"year"}, labels...)); err != nil {
		return err
	}
	for _, year := range buckets.Years() {
		row := make([]string, 0, len(labels)+1)
		row = append(row, strconv.Itoa(year))
		for _, l := range labels {
			if v, ok := buckets[year][l]; ok {
				row = append(row, strconv.FormatInt(v, 10))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePopulationCSV writes the expanded table as date,0,1,...,99,100+.
func WritePopulationCSV(w io.Writer, table *domain.PopulationTable) error {
	writer := csv.NewWriter(w)
	header := make([]string, 0, domain.AgeCount+1)
	header = append(header, "date")
	for a := domain.Age(0); a <= domain.AgePlus100; a++ {
		header = append(header, a.String())
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range table.Rows {
		row := make([]string, 0, domain.AgeCount+1)
		row = append(row, r.Month.String())
		for _, c := range r.Counts {
			row = append(row, strconv.FormatInt(c, 10))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// bucketLabels orders labels by starting age, "100+" last, unparseable labels after that.
func bucketLabels(buckets domain.YearlyBuckets) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, byLabel := range buckets {
		for l := range byLabel {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	key := func(l string) int {
		if age, _, err := parseBucket(0, l); err == nil {
			return int(age)
		}
		return math.MaxInt
	}
	sort.Slice(labels, func(i, j int) bool {
		ki, kj := key(labels[i]), key(labels[j])
		if ki != kj {
			return ki < kj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int64(math.Round(f)), nil
}
