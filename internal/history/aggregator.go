// Package history walks the trellis-shares job queues for a reporting
// window and normalizes each job into an event record for the event log.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trellisfw/trellis-reports/internal/report"
	"github.com/trellisfw/trellis-reports/internal/trellis"
	"github.com/trellisfw/trellis-reports/pkg/oada"
)

// Queue names selectable from the CLI.
const (
	QueueWaiting  = "waiting"
	QueueComplete = "complete"
)

const (
	jobsPath    = "/bookmarks/services/trellis-shares/jobs"
	successPath = "/bookmarks/services/trellis-shares/jobs-success"
	failurePath = "/bookmarks/services/trellis-shares/jobs-failure"
)

// queueRoot is a completed-jobs queue resource: its day-index maps date
// keys to per-day job listings.
type queueRoot struct {
	ID       string               `json:"_id"`
	DayIndex map[string]oada.Link `json:"day-index"`
}

// Aggregator produces the chronological share-event list for a reporting
// window.
type Aggregator struct {
	fetcher *oada.Fetcher
	log     *slog.Logger
	limit   int

	// now is stubbed in tests to pin the default window.
	now func() time.Time
}

// New creates an Aggregator. limit bounds concurrent job fetches.
func New(fetcher *oada.Fetcher, log *slog.Logger, limit int) *Aggregator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if limit < 1 {
		limit = 10
	}
	return &Aggregator{fetcher: fetcher, log: log, limit: limit, now: time.Now}
}

// Aggregate returns the normalized events for the given queue. For the
// complete queue, dates selects the reporting window; when empty, the
// window is the most recent day-index key strictly before today. Jobs that
// fail to resolve are dropped with a log line; they never abort the window.
func (a *Aggregator) Aggregate(ctx context.Context, queue string, dates []string) ([]report.Event, error) {
	switch queue {
	case QueueWaiting:
		return a.aggregateWaiting(ctx)
	case QueueComplete:
		return a.aggregateComplete(ctx, dates)
	default:
		return nil, fmt.Errorf("unknown queue %q", queue)
	}
}

func (a *Aggregator) aggregateWaiting(ctx context.Context) ([]report.Event, error) {
	var listing oada.Listing
	if err := a.fetcher.GetJSON(ctx, jobsPath, &listing); err != nil {
		if oada.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing waiting jobs: %w", err)
	}
	if listing.Empty() {
		return nil, nil
	}

	refs := make([]jobRef, 0, len(listing.Keys))
	for _, sid := range listing.Keys {
		refs = append(refs, jobRef{path: jobsPath + "/" + sid, status: "pending"})
	}
	return a.resolveJobs(ctx, refs), nil
}

func (a *Aggregator) aggregateComplete(ctx context.Context, dates []string) ([]report.Event, error) {
	days := map[string]bool{}
	for _, p := range []string{successPath, failurePath} {
		var root queueRoot
		if err := a.fetcher.GetJSON(ctx, p, &root); err != nil {
			if !oada.IsNotFound(err) {
				a.log.Error("failed to get job queue", "path", p, "error", err)
			}
			continue
		}
		if root.ID == "" {
			continue
		}
		for day := range root.DayIndex {
			days[day] = true
		}
	}

	window := a.window(days, dates)
	if len(window) == 0 {
		a.log.Info("no job activity in reporting window")
		return nil, nil
	}
	a.log.Debug("reporting window", "dates", window)

	var refs []jobRef
	for _, day := range window {
		refs = append(refs, a.dayJobs(ctx, successPath, day, "success")...)
		refs = append(refs, a.dayJobs(ctx, failurePath, day, "failure")...)
	}
	return a.resolveJobs(ctx, refs), nil
}

// window picks the dates to aggregate: the caller's explicit dates when
// given (filtered to days with activity), otherwise the most recent active
// day strictly before today.
func (a *Aggregator) window(active map[string]bool, dates []string) []string {
	if len(dates) > 0 {
		var out []string
		for _, d := range dates {
			if active[d] {
				out = append(out, d)
			}
		}
		return out
	}

	today := a.now().Format(report.DateFormat)
	latest := ""
	for day := range active {
		if day < today && day > latest {
			latest = day
		}
	}
	if latest == "" {
		return nil
	}
	return []string{latest}
}

// dayJobs lists one queue's jobs for one day. A missing or failing day
// listing yields no refs for that queue.
func (a *Aggregator) dayJobs(ctx context.Context, queuePath, day, status string) []jobRef {
	base := fmt.Sprintf("%s/day-index/%s", queuePath, day)

	var listing oada.Listing
	if err := a.fetcher.GetJSON(ctx, base, &listing); err != nil {
		if !oada.IsNotFound(err) {
			a.log.Error("failed to list jobs for day", "day", day, "status", status, "error", err)
		}
		return nil
	}
	if listing.Empty() {
		return nil
	}

	refs := make([]jobRef, 0, len(listing.Keys))
	for _, sid := range listing.Keys {
		refs = append(refs, jobRef{path: base + "/" + sid, status: status})
	}
	return refs
}

type jobRef struct {
	path   string
	status string
}

func (a *Aggregator) resolveJobs(ctx context.Context, refs []jobRef) []report.Event {
	var (
		mu     sync.Mutex
		events []report.Event
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.limit)
	for _, ref := range refs {
		eg.Go(func() error {
			event, err := a.resolveJob(gctx, ref)
			if err != nil {
				a.log.Error("dropping share job", "job", ref.path, "error", err)
				return nil
			}
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return events
}

// resolveJob fetches one job record and the document and partner it
// references, producing the normalized event row.
func (a *Aggregator) resolveJob(ctx context.Context, ref jobRef) (report.Event, error) {
	var job trellis.ShareJob
	if err := a.fetcher.GetJSON(ctx, ref.path, &job); err != nil {
		return report.Event{}, fmt.Errorf("fetching job: %w", err)
	}
	if job.ID == "" {
		return report.Event{}, fmt.Errorf("job is a placeholder")
	}

	collection, ok := job.DocCollection()
	if !ok {
		return report.Event{}, fmt.Errorf("unknown doctype %q", job.Config.Doctype)
	}

	details, err := trellis.FetchDetails(ctx, a.fetcher, job.Config.Src, collection)
	if err != nil {
		return report.Event{}, fmt.Errorf("resolving shared document: %w", err)
	}

	partnerPath := job.PartnerPath()
	if partnerPath == "" {
		return report.Event{}, fmt.Errorf("job chroot %q has no partner path", job.Config.Chroot)
	}
	var partner trellis.Partner
	if err := a.fetcher.GetJSON(ctx, partnerPath, &partner); err != nil {
		return report.Event{}, fmt.Errorf("resolving partner: %w", err)
	}
	if partner.ID == "" {
		return report.Event{}, fmt.Errorf("partner at %s is a placeholder", partnerPath)
	}

	eventTime := "awaiting approval"
	if ref.status != "pending" {
		t, ok := job.EarliestUpdate(ref.status)
		if !ok {
			return report.Event{}, fmt.Errorf("job has no %s update", ref.status)
		}
		eventTime = t.Format(report.EventTimeFormat)
	}

	return report.Event{
		Status:    ref.status,
		Doc:       details,
		Partner:   report.PartnerRef{Name: partner.Name, MasterID: partner.MasterID},
		Email:     partner.Email(collection),
		EventTime: eventTime,
		EventType: "share",
	}, nil
}
