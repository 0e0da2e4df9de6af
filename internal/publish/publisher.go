// Package publish encodes surviving reports as xlsx artifacts and either
// writes them to local disk or uploads them to the store's report archive,
// creating the archive hierarchy on first use.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/trellisfw/trellis-reports/internal/report"
	"github.com/trellisfw/trellis-reports/pkg/oada"
)

const (
	servicePath = "/bookmarks/services/trellis-reports"

	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Publisher writes report artifacts locally or to the store.
type Publisher struct {
	client  *oada.Client
	fetcher *oada.Fetcher
	log     *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher. Reads (previous artifacts, archive
// listings) go through the fetcher's retry policy; writes use the client
// directly.
func NewPublisher(client *oada.Client, fetcher *oada.Fetcher, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, fetcher: fetcher, log: log, now: time.Now}
}

// SaveLocal writes one report to disk as <prefix>_<report-name>.xlsx.
func (p *Publisher) SaveLocal(prefix string, r *report.Report) error {
	data, err := Encode(r)
	if err != nil {
		return fmt.Errorf("encoding %s report: %w", r.Kind, err)
	}
	name := r.Kind.FileName(prefix)
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	p.log.Info("report written", "report", r.Kind.DisplayName(), "file", name)
	return nil
}

// SaveAllLocal writes each report to disk. A failed write for one report
// does not block the others; the first error is returned after all writes
// are attempted.
func (p *Publisher) SaveAllLocal(prefix string, reports []*report.Report) error {
	var firstErr error
	for _, r := range reports {
		if err := p.SaveLocal(prefix, r); err != nil {
			p.log.Error("failed to write report", "report", r.Kind.DisplayName(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FetchPrevious retrieves the most recently archived artifact for the
// report kind and decodes it into canonicalized rows. Returns nil rows if
// the archive has no entries yet.
func (p *Publisher) FetchPrevious(ctx context.Context, kind report.Kind) ([][]string, error) {
	indexPath := kind.RemoteBase() + "/day-index"

	var listing oada.Listing
	if err := p.fetcher.GetJSON(ctx, indexPath, &listing); err != nil {
		if oada.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", indexPath, err)
	}
	if len(listing.Keys) == 0 {
		return nil, nil
	}

	// Keys are YYYY-MM-DD and sorted, so the last is the latest day.
	latest := listing.Keys[len(listing.Keys)-1]
	resp, err := p.fetcher.Get(ctx, indexPath+"/"+latest)
	if err != nil {
		return nil, fmt.Errorf("fetching previous %s artifact: %w", kind, err)
	}

	headers := kind.Headers()
	rows, err := DecodeRows(resp.Data, headers)
	if err != nil {
		return nil, fmt.Errorf("decoding previous %s artifact: %w", kind, err)
	}
	report.Canonicalize(kind, headers, rows)
	return rows, nil
}

// EnsureEndpoints makes sure the report archive hierarchy exists:
// the trellis-reports service document with one day-indexed archive per
// report kind, linked under /bookmarks/services. Idempotent; an existing
// hierarchy is left untouched.
func (p *Publisher) EnsureEndpoints(ctx context.Context) error {
	if _, err := p.fetcher.Get(ctx, servicePath); err == nil {
		return nil
	} else if !oada.IsNotFound(err) {
		return fmt.Errorf("checking %s: %w", servicePath, err)
	}

	svcLoc, err := p.client.PostJSON(ctx, "/resources", map[string]any{})
	if err != nil {
		return fmt.Errorf("creating trellis-reports service document: %w", err)
	}

	archives := make(map[report.Kind]string, 3)
	for _, kind := range []report.Kind{report.EventLog, report.UserAccess, report.DocumentShares} {
		loc, err := p.client.PostJSON(ctx, "/resources", map[string]any{
			"day-index": map[string]any{},
		})
		if err != nil {
			return fmt.Errorf("creating %s archive: %w", kind, err)
		}
		archives[kind] = loc
	}

	err = p.client.Put(ctx, "/bookmarks/services", map[string]any{
		"trellis-reports": link(svcLoc),
	})
	if err != nil {
		return fmt.Errorf("linking trellis-reports under services: %w", err)
	}

	err = p.client.Put(ctx, servicePath, map[string]any{
		"event-log":                    link(archives[report.EventLog]),
		"current-tradingpartnershares": link(archives[report.UserAccess]),
		"current-shareabledocs":        link(archives[report.DocumentShares]),
	})
	if err != nil {
		return fmt.Errorf("linking report archives: %w", err)
	}
	return nil
}

// Upload encodes the report, posts it as a binary resource, links it under
// today's key in the kind's day-index, and attaches the statistics record
// as sidecar metadata.
func (p *Publisher) Upload(ctx context.Context, r *report.Report, stats report.Statistics) error {
	data, err := Encode(r)
	if err != nil {
		return fmt.Errorf("encoding %s report: %w", r.Kind, err)
	}

	loc, err := p.client.Post(ctx, "/resources", xlsxMIME, data)
	if err != nil {
		return fmt.Errorf("uploading %s report: %w", r.Kind, err)
	}
	p.log.Debug("report uploaded", "report", r.Kind.DisplayName(), "resource", loc)

	today := p.now().Format(report.DateFormat)
	indexPath := r.Kind.RemoteBase() + "/day-index"
	if err := p.client.Put(ctx, indexPath, map[string]any{today: link(loc)}); err != nil {
		return fmt.Errorf("linking %s report in day-index: %w", r.Kind, err)
	}

	metaPath := fmt.Sprintf("%s/%s/_meta", indexPath, today)
	if err := p.client.Put(ctx, metaPath, map[string]any{"statistics": stats}); err != nil {
		return fmt.Errorf("attaching %s statistics: %w", r.Kind, err)
	}
	return nil
}

func link(id string) map[string]any {
	return map[string]any{"_id": id, "_rev": 0}
}
