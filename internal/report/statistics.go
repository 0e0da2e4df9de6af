package report

import (
	"time"
)

// Statistics is the summary record attached to a published artifact's
// day-index entry as sidecar metadata.
type Statistics map[string]int

// Statistics computes the summary record for the report. now anchors the
// expired-document check for the document share report.
func (r *Report) Statistics(now time.Time) Statistics {
	switch r.Kind {
	case UserAccess:
		return r.userAccessStats()
	case DocumentShares:
		return r.documentShareStats(now)
	default:
		return r.eventLogStats()
	}
}

func (r *Report) userAccessStats() Statistics {
	mi := colIndex(r.Headers, "trading partner masterid")
	di := colIndex(r.Headers, "document type")

	partners := map[string]bool{}
	withoutDocs := 0
	for _, row := range r.Rows {
		partners[row[mi]] = true
		if row[di] == "" {
			withoutDocs++
		}
	}
	return Statistics{
		"numTradingPartners": len(partners),
		"numTPWODocs":        withoutDocs,
		"totalShares":        len(r.Rows) - withoutDocs,
	}
}

func (r *Report) documentShareStats(now time.Time) Statistics {
	di := colIndex(r.Headers, "document id")
	mi := colIndex(r.Headers, "trading partner masterid")
	ti := colIndex(r.Headers, "document type")
	ci := colIndex(r.Headers, "coi expiration date")
	ai := colIndex(r.Headers, "audit expiration date")

	today := now.Truncate(24 * time.Hour)
	seen := map[string]bool{}
	stats := Statistics{
		"numDocsToShare":      0,
		"numDocsNotShared":    0,
		"numExpiredDocuments": 0,
	}
	for _, row := range r.Rows {
		if seen[row[di]] {
			continue
		}
		seen[row[di]] = true
		stats["numDocsToShare"]++
		if row[mi] == "" {
			stats["numDocsNotShared"]++
		}

		var expires time.Time
		switch row[ti] {
		case "coi":
			expires = ParseDay(row[ci])
		case "audit":
			expires = ParseDay(row[ai])
		}
		if !expires.IsZero() && expires.Before(today) {
			stats["numExpiredDocuments"]++
		}
	}
	return stats
}

func (r *Report) eventLogStats() Statistics {
	di := colIndex(r.Headers, "document id")
	ei := colIndex(r.Headers, "event type")

	docs := map[string]bool{}
	stats := Statistics{
		"numDocuments": 0,
		"numShares":    0,
		"numEmails":    0,
	}
	for _, row := range r.Rows {
		if !docs[row[di]] {
			docs[row[di]] = true
			stats["numDocuments"]++
		}
		switch row[ei] {
		case "share":
			stats["numShares"]++
		case "email":
			stats["numEmails"]++
		}
	}
	return stats
}
