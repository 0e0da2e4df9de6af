package crawl

import (
	"sort"

	"github.com/trellisfw/trellis-reports/internal/report"
)

// Partner is one trading partner and its private document holdings,
// indexed by canonical document id. A partner holding only a copy of a
// document and one holding the original index it under the same key.
type Partner struct {
	ID         string
	MasterID   string
	Name       string
	CoiEmails  string
	FsqaEmails string
	Documents  map[string]report.DocumentDetails
}

// Document is one globally listed document and the partners that can see
// it, keyed by partner id.
type Document struct {
	Details report.DocumentDetails
	Shares  map[string]report.PartnerRef
}

// Graph is the reconstructed share graph for one run: every trading
// partner, every globally listed document, and the derived share edges
// between them.
type Graph struct {
	Partners  map[string]*Partner
	Documents map[string]*Document
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Partners:  make(map[string]*Partner),
		Documents: make(map[string]*Document),
	}
}

// AccessEntries projects the graph into the user access report's input,
// ordered by partner id for stable output.
func (g *Graph) AccessEntries() []report.PartnerAccess {
	pids := make([]string, 0, len(g.Partners))
	for pid := range g.Partners {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	entries := make([]report.PartnerAccess, 0, len(pids))
	for _, pid := range pids {
		p := g.Partners[pid]
		entry := report.PartnerAccess{Name: p.Name, MasterID: p.MasterID}
		keys := make([]string, 0, len(p.Documents))
		for k := range p.Documents {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			entry.Documents = append(entry.Documents, p.Documents[k])
		}
		entries = append(entries, entry)
	}
	return entries
}

// ShareEntries projects the graph into the document share report's input,
// ordered by document id.
func (g *Graph) ShareEntries() []report.DocumentShare {
	ids := make([]string, 0, len(g.Documents))
	for id := range g.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]report.DocumentShare, 0, len(ids))
	for _, id := range ids {
		doc := g.Documents[id]
		entry := report.DocumentShare{Doc: doc.Details}
		pids := make([]string, 0, len(doc.Shares))
		for pid := range doc.Shares {
			pids = append(pids, pid)
		}
		sort.Strings(pids)
		for _, pid := range pids {
			entry.Partners = append(entry.Partners, doc.Shares[pid])
		}
		entries = append(entries, entry)
	}
	return entries
}
