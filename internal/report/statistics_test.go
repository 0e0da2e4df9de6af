package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatistics(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("user access", func(t *testing.T) {
		r := BuildUserAccess([]PartnerAccess{
			{Name: "Acme", MasterID: "m-acme", Documents: []DocumentDetails{
				coiDetails("resources/c1"),
				coiDetails("resources/c2"),
			}},
			{Name: "Beta", MasterID: "m-beta"},
		})

		assert.Equal(t, Statistics{
			"numTradingPartners": 2,
			"numTPWODocs":        1,
			"totalShares":        2,
		}, r.Statistics(now))
	})

	t.Run("document shares counts unique and expired documents", func(t *testing.T) {
		expired := coiDetails("resources/old")
		expired.CoiExpiration = "01/01/2020"

		r := BuildDocumentShares([]DocumentShare{
			{Doc: coiDetails("resources/c1"), Partners: []PartnerRef{
				{Name: "Acme", MasterID: "m-acme"},
				{Name: "Beta", MasterID: "m-beta"},
			}},
			{Doc: expired},
		})

		assert.Equal(t, Statistics{
			"numDocsToShare":      2,
			"numDocsNotShared":    1,
			"numExpiredDocuments": 1,
		}, r.Statistics(now))
	})

	t.Run("event log counts documents and outcomes", func(t *testing.T) {
		r := BuildEventLog([]Event{
			{Status: "success", Doc: coiDetails("resources/c1"), EventType: "share"},
			{Status: "failure", Doc: coiDetails("resources/c1"), EventType: "share"},
			{Status: "success", Doc: coiDetails("resources/c2"), EventType: "email"},
		})

		assert.Equal(t, Statistics{
			"numDocuments": 2,
			"numShares":    2,
			"numEmails":    1,
		}, r.Statistics(now))
	})
}
