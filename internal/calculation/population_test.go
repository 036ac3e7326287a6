package calculation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullBuckets reports every 5-year bucket 0-4..95-99 with perBucket people and "100+" with top.
func fullBuckets(yb domain.YearlyBuckets, year int, perBucket, top int64) {
	for start := 0; start < 100; start += 5 {
		yb.Add(year, fmt.Sprintf("%d-%d", start, start+4), perBucket)
	}
	yb.Add(year, "100+", top)
}

func sparseBuckets(years ...int) domain.YearlyBuckets {
	yb := make(domain.YearlyBuckets)
	for _, y := range years {
		yb.Add(y, "20-24", 100)
		yb.Add(y, "65-69", 20)
		yb.Add(y, "100+", 5)
	}
	return yb
}

func TestExpandPopulationConservesPartition(t *testing.T) {
	yb := make(domain.YearlyBuckets)
	for _, y := range []int{2000, 2001, 2002} {
		fullBuckets(yb, y, 500, 100)
	}

	table, err := NewPopulationExpander(nil).Expand(yb, 0)
	require.NoError(t, err)
	require.Len(t, table.Rows, 25)
	assert.Empty(t, table.Anomalies)

	for _, r := range table.Rows {
		assert.Equal(t, int64(10100), r.Total(), "total at %s", r.Month)
		for a, c := range r.Counts {
			assert.Equal(t, int64(100), c, "age %d at %s", a, r.Month)
		}
	}
}

func TestExpandPopulationInterpolatesBetweenYears(t *testing.T) {
	yb := make(domain.YearlyBuckets)
	fullBuckets(yb, 2000, 500, 100)
	fullBuckets(yb, 2001, 1000, 200)

	table, err := NewPopulationExpander(nil).Expand(yb, 0)
	require.NoError(t, err)
	require.Len(t, table.Rows, 13)

	mid := table.Rows[6]
	assert.Equal(t, dateutil.MustParseMonth("2001-06"), mid.Month)
	assert.Equal(t, int64(150), mid.Counts[42])
	// 20 buckets of 750 plus 150 at the top.
	assert.Equal(t, int64(15150), mid.Total())
}

func TestExpandPopulationMonthsAreContiguous(t *testing.T) {
	table, err := NewPopulationExpander(nil).Expand(sparseBuckets(1990, 1991, 1995), 0)
	require.NoError(t, err)

	require.NotEmpty(t, table.Rows)
	assert.Equal(t, dateutil.December(1990), table.Rows[0].Month)
	assert.Equal(t, dateutil.December(1995), table.Rows[len(table.Rows)-1].Month)
	for i := 1; i < len(table.Rows); i++ {
		assert.Equal(t, table.Rows[i-1].Month.Next(), table.Rows[i].Month)
	}
}

func TestExpandPopulationFillsBetweenMidpoints(t *testing.T) {
	table, err := NewPopulationExpander(nil).Expand(sparseBuckets(2000, 2001), 0)
	require.NoError(t, err)

	row := table.Rows[0]
	assert.Equal(t, int64(20), row.Counts[22])
	assert.Equal(t, int64(4), row.Counts[67])
	assert.Equal(t, int64(5), row.Counts[100])
	for a := 22; a <= 100; a++ {
		assert.Positive(t, row.Counts[a], "age %d", a)
	}
	// 22 -> 67 falls from 20 to 4 over 45 ages.
	assert.Equal(t, int64(12), row.Counts[44])
	// Nothing below the first midpoint.
	for a := 0; a < 22; a++ {
		assert.Zero(t, row.Counts[a], "age %d", a)
	}
}

func TestExpandPopulationBoundaryAges(t *testing.T) {
	yb := make(domain.YearlyBuckets)
	for _, y := range []int{2000, 2001} {
		yb.Add(y, "0-4", 500)
		yb.Add(y, "5-9", 1000)
		yb.Add(y, "100+", 10)
	}

	table, err := NewPopulationExpander(nil).Expand(yb, 0)
	require.NoError(t, err)

	row := table.Rows[0]
	assert.Equal(t, int64(100), row.Counts[2])
	assert.Equal(t, int64(120), row.Counts[3])
	assert.Equal(t, int64(140), row.Counts[4])
	assert.Equal(t, int64(60), row.Counts[0])
	assert.Equal(t, int64(80), row.Counts[1])
	assert.Empty(t, table.Anomalies)
}

func TestExpandPopulationKeepsNegativeBoundaryValues(t *testing.T) {
	yb := make(domain.YearlyBuckets)
	for _, y := range []int{2000, 2001} {
		yb.Add(y, "0-4", 100)
		yb.Add(y, "5-9", 1000)
	}
	logger := &recordingLogger{}

	table, err := NewPopulationExpander(logger).Expand(yb, 0)
	require.NoError(t, err)

	row := table.Rows[0]
	// age2 = 20, age3 = 56, age4 = 92
	assert.Equal(t, int64(-52), row.Counts[0])
	assert.Equal(t, int64(-16), row.Counts[1])
	assert.Len(t, table.Anomalies, 2*len(table.Rows))
	assert.Equal(t, domain.Age(0), table.Anomalies[0].Age)
	assert.InDelta(t, -52.0, table.Anomalies[0].Value, 1e-9)
	assert.Equal(t, len(table.Anomalies), logger.count("WARN"))
}

func TestExpandPopulationDropsUnseededMonths(t *testing.T) {
	logger := &recordingLogger{}
	table, err := NewPopulationExpander(logger).Expand(sparseBuckets(2000, 2001), 2005)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 13)
	assert.Equal(t, dateutil.December(2001), table.Rows[len(table.Rows)-1].Month)
	assert.Equal(t, 1, logger.count("WARN"))
}

func TestExpandPopulationErrors(t *testing.T) {
	t.Run("single year", func(t *testing.T) {
		_, err := NewPopulationExpander(nil).Expand(sparseBuckets(2000), 0)
		assert.True(t, errors.Is(err, ErrDataGap))
	})

	t.Run("malformed label", func(t *testing.T) {
		yb := sparseBuckets(2000, 2001)
		yb.Add(2001, "twenty", 3)
		_, err := NewPopulationExpander(nil).Expand(yb, 0)
		require.True(t, errors.Is(err, ErrMalformedBucket))

		var mb *MalformedBucketError
		require.ErrorAs(t, err, &mb)
		assert.Equal(t, "twenty", mb.Label)
		assert.Equal(t, 2001, mb.Year)
	})

	t.Run("bucket in one year only", func(t *testing.T) {
		yb := sparseBuckets(2000, 2001)
		yb.Add(2000, "40-44", 10)
		_, err := NewPopulationExpander(nil).Expand(yb, 0)
		assert.True(t, errors.Is(err, ErrDataGap))
	})

	t.Run("horizon leaves one seed year", func(t *testing.T) {
		yb := make(domain.YearlyBuckets)
		fullBuckets(yb, 2000, 500, 100)
		fullBuckets(yb, 2001, 500, 100)
		table, err := NewPopulationExpander(nil).Expand(yb, 2000)
		assert.Nil(t, table)
		require.True(t, errors.Is(err, ErrDataGap))

		var gap *DataGapError
		require.ErrorAs(t, err, &gap)
		assert.Equal(t, "population", gap.Series)
		assert.Equal(t, 1, gap.Anchors)
	})

	t.Run("horizon before data", func(t *testing.T) {
		_, err := NewPopulationExpander(nil).Expand(sparseBuckets(2000, 2001), 1990)
		assert.Error(t, err)
	})
}

func TestParseBucket(t *testing.T) {
	tests := []struct {
		label  string
		age    domain.Age
		divide bool
		ok     bool
	}{
		{"0-4", 2, true, true},
		{"20-24", 22, true, true},
		{" 95-99 ", 97, true, true},
		{"100+", 100, false, true},
		{"85+", 0, false, false},
		{"100-104", 0, false, false},
		{"24-20", 0, false, false},
		{"20-30", 0, false, false},
		{"20-20", 0, false, false},
		{"", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			age, divide, err := parseBucket(2000, tt.label)
			if !tt.ok {
				assert.True(t, errors.Is(err, ErrMalformedBucket))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.age, age)
			assert.Equal(t, tt.divide, divide)
		})
	}
}

func TestAggregateWorkforce(t *testing.T) {
	yb := make(domain.YearlyBuckets)
	for _, y := range []int{2000, 2001} {
		fullBuckets(yb, y, 500, 100)
	}
	table, err := NewPopulationExpander(nil).Expand(yb, 0)
	require.NoError(t, err)

	points := AggregateWorkforce(table,
		domain.AgeRange{From: 20, To: 64},
		domain.AgeRange{From: 65, To: domain.AgePlus100})
	require.Len(t, points, len(table.Rows))
	assert.Equal(t, int64(4500), points[0].Workers)
	assert.Equal(t, int64(3600), points[0].Retirees)
	assert.Equal(t, table.Rows[3].Month, points[3].Month)

	assert.Nil(t, AggregateWorkforce(nil, domain.AgeRange{}, domain.AgeRange{}))
}
