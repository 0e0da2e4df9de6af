package report

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessReport(partners ...PartnerAccess) *Report {
	r := BuildUserAccess(partners)
	r.Canonicalize()
	return r
}

func TestIsDuplicate(t *testing.T) {
	partners := []PartnerAccess{
		{Name: "Acme", MasterID: "m-acme", Documents: []DocumentDetails{
			coiDetails("resources/c2"),
			coiDetails("resources/c1"),
		}},
		{Name: "Beta", MasterID: "m-beta"},
		{Name: "Gamma", MasterID: "m-gamma", Documents: []DocumentDetails{
			coiDetails("resources/c3"),
		}},
	}

	t.Run("independently reordered copies are duplicates", func(t *testing.T) {
		shuffled := make([]PartnerAccess, len(partners))
		copy(shuffled, partners)
		rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		a := accessReport(partners...)
		b := accessReport(shuffled...)
		assert.True(t, IsDuplicate(a.Rows, b.Rows))
	})

	t.Run("one changed field is not a duplicate", func(t *testing.T) {
		a := accessReport(partners...)
		b := accessReport(partners...)
		require.NotEmpty(t, b.Rows)
		b.Rows[0][0] = "Something Else"
		assert.False(t, IsDuplicate(a.Rows, b.Rows))
	})

	t.Run("length mismatch is not a duplicate", func(t *testing.T) {
		a := accessReport(partners...)
		b := accessReport(partners[:2]...)
		assert.False(t, IsDuplicate(a.Rows, b.Rows))
	})
}

func TestShouldPublish(t *testing.T) {
	r := accessReport(PartnerAccess{Name: "Acme", MasterID: "m-acme"})

	t.Run("zero rows is suppressed unconditionally", func(t *testing.T) {
		empty := BuildUserAccess(nil)
		assert.False(t, ShouldPublish(nil, empty))
		assert.False(t, ShouldPublish([][]string{{"x"}}, empty))
	})

	t.Run("no previous report always publishes", func(t *testing.T) {
		assert.True(t, ShouldPublish(nil, r))
	})

	t.Run("matching previous report suppresses", func(t *testing.T) {
		assert.False(t, ShouldPublish(r.Rows, r))
	})

	t.Run("differing previous report publishes", func(t *testing.T) {
		other := accessReport(PartnerAccess{Name: "Beta", MasterID: "m-beta"})
		assert.True(t, ShouldPublish(other.Rows, r))
	})
}

func TestCanonicalize(t *testing.T) {
	t.Run("user access sorts by masterid then document id", func(t *testing.T) {
		r := accessReport(
			PartnerAccess{Name: "Beta", MasterID: "m-beta", Documents: []DocumentDetails{coiDetails("resources/c1")}},
			PartnerAccess{Name: "Acme", MasterID: "m-acme", Documents: []DocumentDetails{
				coiDetails("resources/c2"),
				coiDetails("resources/c1"),
			}},
		)

		var got [][2]string
		for _, row := range r.Rows {
			got = append(got, [2]string{cell(r, row, "trading partner masterid"), cell(r, row, "document id")})
		}
		assert.Equal(t, [][2]string{
			{"m-acme", "resources/c1"},
			{"m-acme", "resources/c2"},
			{"m-beta", "resources/c1"},
		}, got)
	})

	t.Run("document shares sorts by document id then masterid", func(t *testing.T) {
		r := BuildDocumentShares([]DocumentShare{
			{Doc: coiDetails("resources/c2")},
			{Doc: coiDetails("resources/c1"), Partners: []PartnerRef{
				{Name: "Beta", MasterID: "m-beta"},
				{Name: "Acme", MasterID: "m-acme"},
			}},
		})
		r.Canonicalize()

		var got [][2]string
		for _, row := range r.Rows {
			got = append(got, [2]string{cell(r, row, "document id"), cell(r, row, "trading partner masterid")})
		}
		assert.Equal(t, [][2]string{
			{"resources/c1", "m-acme"},
			{"resources/c1", "m-beta"},
			{"resources/c2", ""},
		}, got)
	})

	t.Run("unparseable event times sort last", func(t *testing.T) {
		r := BuildEventLog([]Event{
			{Status: "pending", Partner: PartnerRef{MasterID: "m-acme"}, EventTime: "awaiting approval", EventType: "share"},
			{Status: "success", Partner: PartnerRef{MasterID: "m-zeta"}, EventTime: "03/01/2024 10:00", EventType: "share"},
		})
		r.Canonicalize()

		assert.Equal(t, "success", cell(r, r.Rows[0], "share status"))
		assert.Equal(t, "pending", cell(r, r.Rows[1], "share status"))
	})
}
