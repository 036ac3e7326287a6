package calculation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
)

// bucketWidth is the span of every closed age bucket ("20-24").
const bucketWidth = 5

// PopulationExpander turns yearly 5-year age buckets into a monthly single-year-of-age table.
type PopulationExpander struct {
	Logger Logger
}

// NewPopulationExpander returns an expander that logs through l (nil means no logging).
func NewPopulationExpander(l Logger) *PopulationExpander {
	if l == nil {
		l = NopLogger{}
	}
	return &PopulationExpander{Logger: l}
}

type bucketColumn struct {
	label  string
	age    domain.Age
	divide bool
	values []float64
	known  []bool
}

// Expand runs the four expansion stages: time-axis interpolation between December seeds,
// bucket to midpoint decomposition, age-axis interpolation and boundary extrapolation of
// ages 0 and 1. horizonYear extends the calendar; 0 means the last seeded year. Months past
// the last seeded December are not extrapolated and do not appear in the result.
func (p *PopulationExpander) Expand(buckets domain.YearlyBuckets, horizonYear int) (*domain.PopulationTable, error) {
	log := p.logger()

	years := buckets.Years()
	if len(years) < 2 {
		return nil, &DataGapError{Series: "population", Anchors: len(years)}
	}
	first, last := years[0], years[len(years)-1]
	if horizonYear == 0 {
		horizonYear = last
	}
	if horizonYear < first {
		return nil, fmt.Errorf("population horizon %d precedes first seeded year %d", horizonYear, first)
	}
	anchored := 0
	for _, y := range years {
		if y <= horizonYear {
			anchored++
		}
	}
	if anchored < 2 {
		return nil, &DataGapError{Series: "population", Anchors: anchored}
	}

	start := dateutil.December(first)
	calendar := dateutil.Range(start, dateutil.December(horizonYear))
	keep := len(calendar)
	if horizonYear > last {
		keep = start.MonthsUntil(dateutil.December(last)) + 1
		log.Warnf("population: %d months after %s have no seed year and are dropped",
			len(calendar)-keep, dateutil.December(last))
	}

	columns, err := seedColumns(buckets, years, start, len(calendar))
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		c.values, c.known, err = Interpolate("population bucket "+c.label, c.values, c.known, FillInterior)
		if err != nil {
			return nil, err
		}
	}
	log.Debugf("population: %d buckets interpolated over %d months", len(columns), keep)

	table := &domain.PopulationTable{Rows: make([]domain.PopulationRow, 0, keep)}
	for i := 0; i < keep; i++ {
		month := calendar[i]
		ages, err := expandMonth(columns, i)
		if err != nil {
			return nil, fmt.Errorf("population %s: %w", month, err)
		}

		row := domain.PopulationRow{Month: month}
		for a, v := range ages {
			if a <= 1 && v < 0 {
				table.Anomalies = append(table.Anomalies, domain.PopulationAnomaly{
					Month: month, Age: domain.Age(a), Value: v,
				})
				log.Warnf("population: negative extrapolated count %.1f for age %d at %s", v, a, month)
			}
			row.Counts[a] = int64(math.Round(v))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func (p *PopulationExpander) logger() Logger {
	if p == nil || p.Logger == nil {
		return NopLogger{}
	}
	return p.Logger
}

// seedColumns builds one column per bucket label over the full calendar, known only at the
// December of each year that reports the bucket.
func seedColumns(buckets domain.YearlyBuckets, years []int, start dateutil.Month, n int) ([]*bucketColumn, error) {
	byLabel := make(map[string]*bucketColumn)
	for _, year := range years {
		idx := start.MonthsUntil(dateutil.December(year))
		if idx >= n {
			continue
		}
		for label, count := range buckets[year] {
			col, ok := byLabel[label]
			if !ok {
				age, divide, err := parseBucket(year, label)
				if err != nil {
					return nil, err
				}
				col = &bucketColumn{
					label:  label,
					age:    age,
					divide: divide,
					values: make([]float64, n),
					known:  make([]bool, n),
				}
				byLabel[label] = col
			}
			col.values[idx] = float64(count)
			col.known[idx] = true
		}
	}

	columns := make([]*bucketColumn, 0, len(byLabel))
	for _, c := range byLabel {
		columns = append(columns, c)
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i].age != columns[j].age {
			return columns[i].age < columns[j].age
		}
		return columns[i].label < columns[j].label
	})
	return columns, nil
}

// parseBucket maps a bucket label to the single age that receives its value. Closed buckets
// span exactly bucketWidth ages, land on start+2 and are divided by the width; "100+" lands
// on 100 undivided.
func parseBucket(year int, label string) (domain.Age, bool, error) {
	s := strings.TrimSpace(label)
	if s == domain.AgePlus100.String() {
		return domain.AgePlus100, false, nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return 0, false, &MalformedBucketError{Year: year, Label: label}
	}
	start, err := strconv.Atoi(from)
	if err != nil || start < 0 {
		return 0, false, &MalformedBucketError{Year: year, Label: label}
	}
	end, err := strconv.Atoi(to)
	if err != nil || end-start+1 != bucketWidth {
		return 0, false, &MalformedBucketError{Year: year, Label: label}
	}
	mid := domain.Age(start + 2)
	if mid >= domain.AgePlus100 {
		return 0, false, &MalformedBucketError{Year: year, Label: label}
	}
	return mid, true, nil
}

// expandMonth decomposes one month of bucket totals into single ages 0..100.
func expandMonth(columns []*bucketColumn, i int) ([domain.AgeCount]float64, error) {
	var ages [domain.AgeCount]float64
	values := make([]float64, domain.AgeCount)
	known := make([]bool, domain.AgeCount)

	for _, c := range columns {
		if !c.known[i] {
			continue
		}
		v := c.values[i]
		if c.divide {
			v /= bucketWidth
		}
		values[c.age] += v
		known[c.age] = true
	}

	filled, ok, err := Interpolate("population ages", values, known, FillForward)
	if err != nil {
		return ages, err
	}
	// Leading ages with no midpoint below them count as zero.
	for a := range filled {
		if ok[a] {
			ages[a] = filled[a]
		}
	}

	ages[0] = 2*ages[2] - ages[4]
	ages[1] = 2*ages[2] - ages[3]
	return ages, nil
}

// AggregateWorkforce sums each population row over the worker and retiree age ranges.
func AggregateWorkforce(table *domain.PopulationTable, workers, retirees domain.AgeRange) []domain.WorkforcePoint {
	if table == nil {
		return nil
	}
	out := make([]domain.WorkforcePoint, len(table.Rows))
	for i, r := range table.Rows {
		out[i] = domain.WorkforcePoint{
			Month:    r.Month,
			Workers:  r.Sum(workers),
			Retirees: r.Sum(retirees),
		}
	}
	return out
}
