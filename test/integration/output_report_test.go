package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgo/trust-solvency/internal/api"
	"github.com/rpgo/trust-solvency/internal/output"
	"github.com/rpgo/trust-solvency/internal/store"
)

func TestGenerateReportEveryFormat(t *testing.T) {
	_, result := runExample(t)
	dir := t.TempDir()

	for _, name := range output.AvailableFormatterNames() {
		paths, err := output.GenerateReport(result, name, dir)
		if err != nil {
			t.Fatalf("GenerateReport %s error: %v", name, err)
		}
		require.Len(t, paths, 1, name)
		fi, err := os.Stat(paths[0])
		require.NoError(t, err)
		assert.Positive(t, fi.Size(), name)
		assert.Equal(t, "."+output.Extension(name), filepath.Ext(paths[0]))
	}

	_, err := output.GenerateReport(result, "xlsx", dir)
	assert.ErrorIs(t, err, output.ErrUnsupportedFormat)
}

// A run saved to SQLite and served over HTTP renders the same fund CSV as the in-memory run.
func TestSavedRunServedOverAPI(t *testing.T) {
	_, result := runExample(t)
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.SaveRun(ctx, result))

	want, err := output.GetFormatterByName("csv").Format(result)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(st, nil), nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs/" + result.RunID + "/fund.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	report, err := http.Get(srv.URL + "/api/runs/" + result.RunID + "/report.md")
	require.NoError(t, err)
	defer report.Body.Close()
	body, err := io.ReadAll(report.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "integration baseline"))
}
