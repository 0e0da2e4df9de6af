// Package crawl walks the trading-partner tree and the global document
// collections, reconstructing the share graph: which partner can see which
// document. The store does not record share edges directly; they are
// derived by matching each global document's canonical id against every
// partner's private holdings.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trellisfw/trellis-reports/internal/report"
	"github.com/trellisfw/trellis-reports/internal/trellis"
	"github.com/trellisfw/trellis-reports/pkg/oada"
)

const (
	partnersPath = "/bookmarks/trellisfw/trading-partners"
	trellisfw    = "/bookmarks/trellisfw"
)

// DefaultConcurrency bounds simultaneous in-flight fetches so the crawl
// does not overwhelm the store.
const DefaultConcurrency = 10

// Crawler produces the full share graph for the current moment.
type Crawler struct {
	fetcher *oada.Fetcher
	log     *slog.Logger
	limit   int

	mu sync.Mutex
}

// New creates a Crawler. limit bounds concurrent fetch fan-out; values
// below one fall back to DefaultConcurrency.
func New(fetcher *oada.Fetcher, log *slog.Logger, limit int) *Crawler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &Crawler{fetcher: fetcher, log: log, limit: limit}
}

// Crawl walks the partner list and both global document collections and
// returns the resolved share graph. Individual missing or failing subtrees
// are skipped; only a failure to list the trading partners at all aborts
// the crawl.
func (c *Crawler) Crawl(ctx context.Context) (*Graph, error) {
	graph := NewGraph()

	var partners oada.Listing
	if err := c.fetcher.GetJSON(ctx, partnersPath, &partners); err != nil {
		if !oada.IsNotFound(err) {
			return nil, fmt.Errorf("listing trading partners: %w", err)
		}
		c.log.Info("no trading partners resource")
	}

	// Even with no partners the global collections are still walked, so
	// unshared documents show up on the share report.
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.limit)
	for _, pid := range partners.Keys {
		eg.Go(func() error {
			c.crawlPartner(gctx, graph, pid)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Partners are fully indexed before any document's shares are
	// resolved, so lookups on either the document's own id or its
	// copy-source id see every holding.
	for _, collection := range []string{trellis.CollectionCois, trellis.CollectionAudits} {
		c.crawlCollection(ctx, graph, collection)
	}

	return graph, nil
}

func (c *Crawler) crawlPartner(ctx context.Context, graph *Graph, pid string) {
	c.log.Info("getting documents for trading partner", "partner", pid)

	var profile trellis.Partner
	path := partnersPath + "/" + pid
	if err := c.fetcher.GetJSON(ctx, path, &profile); err != nil {
		if oada.IsNotFound(err) {
			c.log.Debug("trading partner has no profile", "partner", pid)
		} else {
			c.log.Error("failed to get trading partner", "partner", pid, "error", err)
		}
		return
	}
	if profile.ID == "" {
		return
	}

	p := &Partner{
		ID:         pid,
		MasterID:   profile.MasterID,
		Name:       profile.Name,
		CoiEmails:  profile.CoiEmails,
		FsqaEmails: profile.FsqaEmails,
		Documents:  make(map[string]report.DocumentDetails),
	}
	for _, collection := range []string{trellis.CollectionCois, trellis.CollectionAudits} {
		c.crawlPartnerDocs(ctx, p, pid, collection)
	}

	c.mu.Lock()
	graph.Partners[pid] = p
	c.mu.Unlock()
}

func (c *Crawler) crawlPartnerDocs(ctx context.Context, p *Partner, pid, collection string) {
	base := fmt.Sprintf("%s/%s/user/bookmarks/trellisfw/%s", partnersPath, pid, collection)

	var listing oada.Listing
	if err := c.fetcher.GetJSON(ctx, base, &listing); err != nil {
		if !oada.IsNotFound(err) {
			c.log.Error("failed to list partner documents",
				"partner", pid, "collection", collection, "error", err)
		}
		return
	}
	if listing.Empty() {
		return
	}

	for _, key := range listing.Keys {
		details, err := c.fetchDocument(ctx, base+"/"+key, collection)
		if err != nil {
			if !oada.IsNotFound(err) {
				c.log.Error("failed to fetch partner document",
					"partner", pid, "collection", collection, "key", key, "error", err)
			}
			continue
		}
		id := details.CanonicalID()
		if _, ok := p.Documents[id]; !ok {
			p.Documents[id] = details
		}
	}
}

func (c *Crawler) crawlCollection(ctx context.Context, graph *Graph, collection string) {
	base := trellisfw + "/" + collection

	var listing oada.Listing
	if err := c.fetcher.GetJSON(ctx, base, &listing); err != nil {
		if oada.IsNotFound(err) {
			c.log.Info("document collection does not exist", "collection", collection)
		} else {
			c.log.Error("failed to list documents", "collection", collection, "error", err)
		}
		return
	}
	if listing.Empty() {
		return
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.limit)
	for _, key := range listing.Keys {
		eg.Go(func() error {
			c.resolveDocument(gctx, graph, base+"/"+key, collection, key)
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = eg.Wait()
}

// resolveDocument fetches one globally listed document and resolves its
// share set against every partner's holdings.
func (c *Crawler) resolveDocument(ctx context.Context, graph *Graph, path, collection, key string) {
	details, err := c.fetchDocument(ctx, path, collection)
	if err != nil {
		if !oada.IsNotFound(err) {
			c.log.Error("failed to fetch document",
				"collection", collection, "key", key, "error", err)
		}
		return
	}

	doc := &Document{Details: details, Shares: make(map[string]report.PartnerRef)}
	id := details.CanonicalID()
	for pid, p := range graph.Partners {
		if _, ok := p.Documents[id]; ok {
			c.log.Debug("document shared with partner", "document", details.ID, "partner", pid)
			doc.Shares[pid] = report.PartnerRef{Name: p.Name, MasterID: p.MasterID}
		}
	}

	c.mu.Lock()
	graph.Documents[details.ID] = doc
	c.mu.Unlock()
}

func (c *Crawler) fetchDocument(ctx context.Context, path, collection string) (report.DocumentDetails, error) {
	return trellis.FetchDetails(ctx, c.fetcher, path, collection)
}
