package report

import (
	"slices"
	"sort"
	"time"
)

// Canonicalize sorts rows into the kind's canonical order so snapshot
// comparison is independent of crawl and fan-out order. The same function is
// applied to rows decoded from a previously published artifact.
func Canonicalize(kind Kind, headers []string, rows [][]string) {
	switch kind {
	case UserAccess:
		sortByColumns(headers, rows, "trading partner masterid", "document id")
	case DocumentShares:
		sortByColumns(headers, rows, "document id", "trading partner masterid")
	case EventLog:
		sortEventRows(headers, rows)
	}
}

// Canonicalize sorts the report's rows into canonical order.
func (r *Report) Canonicalize() {
	Canonicalize(r.Kind, r.Headers, r.Rows)
}

// IsDuplicate reports whether two canonicalized row sets are identical:
// equal length and pairwise equal rows. Any length mismatch or differing
// cell makes the reports distinct.
func IsDuplicate(prev, next [][]string) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !slices.Equal(prev[i], next[i]) {
			return false
		}
	}
	return true
}

// ShouldPublish applies the publication gate. A report with no rows is
// suppressed unconditionally. When no previous report exists (prev is nil)
// the report always publishes; otherwise it publishes only if it differs
// from the previous rows.
func ShouldPublish(prev [][]string, next *Report) bool {
	if len(next.Rows) == 0 {
		return false
	}
	if prev == nil {
		return true
	}
	return !IsDuplicate(prev, next.Rows)
}

func sortByColumns(headers []string, rows [][]string, primary, secondary string) {
	pi := colIndex(headers, primary)
	si := colIndex(headers, secondary)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][pi] != rows[j][pi] {
			return rows[i][pi] < rows[j][pi]
		}
		return rows[i][si] < rows[j][si]
	})
}

// sortEventRows orders by parsed event time, then partner masterid. Rows
// whose event time does not parse (the waiting queue's "awaiting approval")
// sort after all timestamped rows.
func sortEventRows(headers []string, rows [][]string) {
	ti := colIndex(headers, "event time")
	mi := colIndex(headers, "trading partner masterid")
	parse := func(s string) (time.Time, bool) {
		t, err := time.Parse(EventTimeFormat, s)
		return t, err == nil
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ta, aok := parse(rows[i][ti])
		tb, bok := parse(rows[j][ti])
		switch {
		case aok && bok:
			if !ta.Equal(tb) {
				return ta.Before(tb)
			}
		case aok:
			return true
		case bok:
			return false
		}
		return rows[i][mi] < rows[j][mi]
	})
}

func colIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return 0
}
