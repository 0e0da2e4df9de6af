package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellisfw/trellis-reports/internal/report"
	"github.com/trellisfw/trellis-reports/internal/testutil"
	"github.com/trellisfw/trellis-reports/pkg/oada"
)

func testReport(kind report.Kind, rows ...[]string) *report.Report {
	r := &report.Report{Kind: kind, Headers: kind.Headers()}
	for _, cells := range rows {
		row := make([]string, len(r.Headers))
		copy(row, cells)
		r.Rows = append(r.Rows, row)
	}
	return r
}

func newPublisher(t *testing.T, st *testutil.Store) *Publisher {
	t.Helper()
	client, err := oada.NewClient(oada.Config{
		Domain:     st.Domain(),
		Token:      "test-token",
		HTTPClient: st.Client(),
	})
	require.NoError(t, err)
	return NewPublisher(client, oada.NewFetcher(client, oada.DefaultRetryPolicy(), nil), nil)
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	r := testReport(report.UserAccess,
		[]string{"Acme", "m-acme", "coi", "resources/c1"},
		[]string{"Beta", "m-beta"},
	)

	data, err := Encode(r)
	require.NoError(t, err)

	rows, err := DecodeRows(data, report.UserAccess.Headers())
	require.NoError(t, err)

	// Trailing empty cells are dropped by the sheet reader; DecodeRows pads
	// them back so decoded rows compare cell-for-cell.
	require.Equal(t, r.Rows, rows)
}

func TestDecodeRowsColumnOrder(t *testing.T) {
	// An artifact whose sheet carries columns in a different order still
	// decodes into the expected header order.
	src := &report.Report{
		Kind:    report.UserAccess,
		Headers: []string{"trading partner masterid", "trading partner name"},
		Rows:    [][]string{{"m-acme", "Acme"}},
	}
	data, err := Encode(src)
	require.NoError(t, err)

	rows, err := DecodeRows(data, []string{"trading partner name", "trading partner masterid"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Acme", "m-acme"}}, rows)
}

func TestSaveLocal(t *testing.T) {
	st := testutil.NewStore(t)
	p := newPublisher(t, st)

	prefix := filepath.Join(t.TempDir(), "2024-06-01")
	r := testReport(report.EventLog, []string{"success", "resources/c1"})
	require.NoError(t, p.SaveAllLocal(prefix, []*report.Report{r}))

	data, err := os.ReadFile(prefix + "_event_log.xlsx")
	require.NoError(t, err)

	rows, err := DecodeRows(data, report.EventLog.Headers())
	require.NoError(t, err)
	assert.Equal(t, r.Rows, rows)
}

func TestFetchPrevious(t *testing.T) {
	st := testutil.NewStore(t)
	p := newPublisher(t, st)
	indexPath := report.UserAccess.RemoteBase() + "/day-index"

	t.Run("no archive yet", func(t *testing.T) {
		rows, err := p.FetchPrevious(context.Background(), report.UserAccess)
		require.NoError(t, err)
		assert.Nil(t, rows)
	})

	t.Run("latest day wins", func(t *testing.T) {
		old := testReport(report.UserAccess, []string{"Old", "m-old"})
		latest := testReport(report.UserAccess,
			[]string{"Zeta", "m-zeta", "coi", "resources/c2"},
			[]string{"Acme", "m-acme", "coi", "resources/c1"},
		)
		for day, r := range map[string]*report.Report{
			"2024-05-30": old,
			"2024-05-31": latest,
		} {
			data, err := Encode(r)
			require.NoError(t, err)
			st.SetBinary(indexPath+"/"+day, xlsxMIME, data)
		}
		st.SetJSON(indexPath, map[string]any{
			"_id":        "resources/ua-index",
			"2024-05-30": map[string]any{"_id": "resources/a30"},
			"2024-05-31": map[string]any{"_id": "resources/a31"},
		})

		rows, err := p.FetchPrevious(context.Background(), report.UserAccess)
		require.NoError(t, err)

		// Rows come back canonicalized: user access sorts by masterid.
		require.Len(t, rows, 2)
		assert.Equal(t, "m-acme", rows[0][1])
		assert.Equal(t, "m-zeta", rows[1][1])
	})
}

func TestEnsureEndpoints(t *testing.T) {
	t.Run("creates hierarchy when absent", func(t *testing.T) {
		st := testutil.NewStore(t)
		p := newPublisher(t, st)

		require.NoError(t, p.EnsureEndpoints(context.Background()))

		svcPuts := st.Puts("/bookmarks/services")
		require.Len(t, svcPuts, 1)
		var svc map[string]map[string]any
		require.NoError(t, json.Unmarshal(svcPuts[0], &svc))
		assert.Contains(t, svc, "trellis-reports")

		archivePuts := st.Puts(servicePath)
		require.Len(t, archivePuts, 1)
		var archives map[string]map[string]any
		require.NoError(t, json.Unmarshal(archivePuts[0], &archives))
		assert.Contains(t, archives, "event-log")
		assert.Contains(t, archives, "current-tradingpartnershares")
		assert.Contains(t, archives, "current-shareabledocs")
	})

	t.Run("idempotent when hierarchy exists", func(t *testing.T) {
		st := testutil.NewStore(t)
		st.SetJSON(servicePath, map[string]any{"_id": "resources/svc"})
		p := newPublisher(t, st)

		require.NoError(t, p.EnsureEndpoints(context.Background()))
		assert.Empty(t, st.Puts("/bookmarks/services"))
		assert.Empty(t, st.Puts(servicePath))
	})
}

func TestUpload(t *testing.T) {
	st := testutil.NewStore(t)
	p := newPublisher(t, st)
	p.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	r := testReport(report.DocumentShares, []string{"cert.pdf", "resources/c1", "coi", "Acme", "m-acme"})
	stats := report.Statistics{"numDocsToShare": 1, "numDocsNotShared": 0}
	require.NoError(t, p.Upload(context.Background(), r, stats))

	indexPath := report.DocumentShares.RemoteBase() + "/day-index"
	indexPuts := st.Puts(indexPath)
	require.Len(t, indexPuts, 1)
	var index map[string]map[string]any
	require.NoError(t, json.Unmarshal(indexPuts[0], &index))
	link, ok := index["2024-06-01"]
	require.True(t, ok)
	assert.NotEmpty(t, link["_id"])

	metaPuts := st.Puts(indexPath + "/2024-06-01/_meta")
	require.Len(t, metaPuts, 1)
	var meta struct {
		Statistics report.Statistics `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(metaPuts[0], &meta))
	assert.Equal(t, stats, meta.Statistics)
}
