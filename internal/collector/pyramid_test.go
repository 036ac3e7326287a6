package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pyramidServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Query().Get("csv") != "true" {
			http.Error(w, "csv flag missing", http.StatusBadRequest)
			return
		}
		var year int
		if _, err := fmt.Sscanf(r.URL.Path, "/api/pp/840/%d/", &year); err != nil {
			http.NotFound(w, r)
			return
		}
		if year == 1999 {
			http.Error(w, "no data", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "Age,M,F\n0-4,%d,%d\n20-24,100,110\n100+,2,3\n", year, 1)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPyramidFetcherFetch(t *testing.T) {
	var hits int32
	srv := pyramidServer(t, &hits)
	f := NewPyramidFetcher(srv.URL+"/api/pp/840", quietLogger())

	got, err := f.Fetch(context.Background(), Years(2000, 2002))
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []int{2000, 2001, 2002}, got.Years())
	assert.Equal(t, int64(2001), got[2000]["0-4"])
	assert.Equal(t, int64(210), got[2001]["20-24"])
	assert.Equal(t, int64(5), got[2002]["100+"])
}

func TestPyramidFetcherErrors(t *testing.T) {
	srv := pyramidServer(t, nil)
	f := NewPyramidFetcher(srv.URL+"/api/pp/840/", quietLogger())

	_, err := f.Fetch(context.Background(), []int{1998, 1999})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pyramid fetch 1999: status 404")

	_, err = f.Fetch(context.Background(), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, []int{2000})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePyramidCSV(t *testing.T) {
	got, err := ParsePyramidCSV(strings.NewReader("\ufeffAge,M,F\n0-4,10,12.0\n5-9, 7, 8\n,,\n0-4,1,1\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"0-4": 24, "5-9": 15}, got)

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "Age,M,F\n"},
		{"missing column", "Age,M\n0-4,1\n"},
		{"fractional", "Age,M,F\n0-4,1.5,1\n"},
		{"negative", "Age,M,F\n0-4,-1,1\n"},
		{"not a number", "Age,M,F\n0-4,x,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePyramidCSV(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{1950, 1951}, Years(1950, 1951))
	assert.Nil(t, Years(2000, 1999))
}
