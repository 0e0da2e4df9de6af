package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/trellisfw/trellis-reports/internal/config"
	"github.com/trellisfw/trellis-reports/internal/crawl"
	"github.com/trellisfw/trellis-reports/internal/history"
	"github.com/trellisfw/trellis-reports/internal/printer"
	"github.com/trellisfw/trellis-reports/internal/publish"
	"github.com/trellisfw/trellis-reports/internal/report"
	"github.com/trellisfw/trellis-reports/pkg/oada"
)

var (
	genQueue       string
	genState       bool
	genDomain      string
	genToken       string
	genFile        string
	genDates       []string
	genConfigPath  string
	genConcurrency int
	genVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Crawl the store and publish today's reports",
	Long: `Crawl the trading-partner tree and the share-job queues, synthesize the
three report tables, and publish each one that differs from the previous
day's artifact.

Without --file, surviving reports are uploaded to the store's report
archive under a today-dated key; with --file, they are written to disk as
<file>_<report-name>.xlsx. If the remote archive cannot be created, reports
fall back to local disk rather than being lost.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genQueue, "queue", "q", history.QueueComplete, "share-job queue to report on: waiting or complete")
	generateCmd.Flags().BoolVarP(&genState, "state", "s", true, "generate the current-state reports (user access, document shares)")
	generateCmd.Flags().StringVarP(&genDomain, "domain", "d", "", "store domain, without https")
	generateCmd.Flags().StringVarP(&genToken, "token", "t", "", "store bearer token")
	generateCmd.Flags().StringVarP(&genFile, "file", "f", "", "local file prefix to save reports under instead of uploading")
	generateCmd.Flags().StringSliceVar(&genDates, "date", nil, "explicit YYYY-MM-DD reporting dates (default: most recent active day)")
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "config file (default: "+config.DefaultFile+")")
	generateCmd.Flags().IntVar(&genConcurrency, "concurrency", 0, "max simultaneous fetches during the crawl")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(generateCmd)
}

// reportOutcome is one row of the end-of-run summary.
type reportOutcome struct {
	kind   report.Kind
	rows   int
	action string
	stats  report.Statistics
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, client, fetcher, err := setup(genConfigPath, genDomain, genToken, genVerbose)
	if err != nil {
		return printer.Error("%v", err)
	}
	if genFile != "" {
		cfg.Output = genFile
	}
	if genConcurrency > 0 {
		cfg.Concurrency = genConcurrency
	}

	ctx := context.Background()
	pub := publish.NewPublisher(client, fetcher, log)

	// The crawl and the history walk are independent; run them
	// concurrently.
	var (
		graph  *crawl.Graph
		events []report.Event
	)
	eg, gctx := errgroup.WithContext(ctx)
	if genState {
		eg.Go(func() error {
			g, err := crawl.New(fetcher, log, cfg.Concurrency).Crawl(gctx)
			graph = g
			return err
		})
	}
	eg.Go(func() error {
		evs, err := history.New(fetcher, log, cfg.Concurrency).Aggregate(gctx, genQueue, genDates)
		events = evs
		return err
	})
	if err := eg.Wait(); err != nil {
		return printer.Error("Report generation failed: %v", err)
	}

	var reports []*report.Report
	if genState {
		reports = append(reports,
			report.BuildUserAccess(graph.AccessEntries()),
			report.BuildDocumentShares(graph.ShareEntries()),
		)
	}
	reports = append(reports, report.BuildEventLog(events))

	now := time.Now()
	var (
		surviving []*report.Report
		outcomes  []reportOutcome
	)
	for _, r := range reports {
		r.Canonicalize()
		outcome := reportOutcome{kind: r.Kind, rows: len(r.Rows), stats: r.Statistics(now)}

		prev, err := pub.FetchPrevious(ctx, r.Kind)
		if err != nil {
			// No previous rows means the report always publishes.
			log.Warn("failed to get previous report", "report", r.Kind, "error", err)
			prev = nil
		}

		switch {
		case len(r.Rows) == 0:
			outcome.action = "suppressed (empty)"
		case !report.ShouldPublish(prev, r):
			log.Info("report is a duplicate of previous", "report", r.Kind)
			outcome.action = "suppressed (duplicate)"
		default:
			outcome.action = "published"
			surviving = append(surviving, r)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := publishAll(ctx, pub, log, cfg, surviving, now); err != nil {
		return printer.Error("Failed to publish reports: %v", err)
	}

	printSummary(outcomes)
	printer.Success("Run complete: %d of %d reports published\n", len(surviving), len(outcomes))
	return nil
}

// publishAll writes the surviving reports to their configured destination.
// When the remote archive cannot be ensured, reports fall back to local
// disk under a date prefix instead of being lost.
func publishAll(ctx context.Context, pub *publish.Publisher, log *slog.Logger, cfg *config.Config, surviving []*report.Report, now time.Time) error {
	if len(surviving) == 0 {
		return nil
	}

	if cfg.Output != "" {
		return pub.SaveAllLocal(cfg.Output, surviving)
	}

	if err := pub.EnsureEndpoints(ctx); err != nil {
		log.Error("failed to ensure report archive, saving to disk", "error", err)
		printer.Warning("Remote archive unavailable, saving reports to disk\n")
		return pub.SaveAllLocal(now.Format(report.DateFormat), surviving)
	}

	var firstErr error
	for _, r := range surviving {
		if err := pub.Upload(ctx, r, r.Statistics(now)); err != nil {
			log.Error("failed to upload report", "report", r.Kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func printSummary(outcomes []reportOutcome) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Report", "Rows", "Action", "Statistics")
	for _, o := range outcomes {
		table.Append(o.kind.DisplayName(), fmt.Sprint(o.rows), o.action, formatStats(o.stats))
	}
	table.Render()
}

func formatStats(stats report.Statistics) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, stats[k]))
	}
	return strings.Join(parts, " ")
}

// setup resolves configuration and builds the store client shared by the
// generate and ensure commands.
func setup(configPath, domain, token string, verbose bool) (*config.Config, *slog.Logger, *oada.Client, *oada.Fetcher, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if domain != "" {
		cfg.Domain = domain
	}
	if token != "" {
		cfg.Token = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client, err := oada.NewClient(oada.Config{Domain: cfg.Domain, Token: cfg.Token})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating store client: %w", err)
	}
	fetcher := oada.NewFetcher(client, oada.DefaultRetryPolicy(), log)
	return cfg, log, client, fetcher, nil
}
