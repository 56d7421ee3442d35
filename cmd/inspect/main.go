// Command inspect normalizes and classifies a FIRMS CSV document and prints a
// summary: record and rejected-row counts plus age-tier, severity and
// footprint histograms. The document is read from a file or fetched live
// using the service's environment configuration.
//
// Usage:
//
//	go run ./cmd/inspect -csv hotspots.csv -now 2024-07-01T12:00:00Z
//	FIRMS_MAP_KEY=... go run ./cmd/inspect -fetch -days 2
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/firms-hotspot-service/internal/adapter/firms"
	"github.com/couchcryptid/firms-hotspot-service/internal/config"
	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command-line flags.
type options struct {
	csvPath string
	fetch   bool
	days    int
	now     time.Time
	zone    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var now string
	fs.StringVar(&opts.csvPath, "csv", "", "path to a FIRMS area CSV file")
	fs.BoolVar(&opts.fetch, "fetch", false, "fetch live data using FIRMS_* environment settings")
	fs.IntVar(&opts.days, "days", 0, "day window for -fetch (default FIRMS_DAYS)")
	fs.StringVar(&now, "now", "", "reference time for age tiers, RFC 3339 (default current time)")
	fs.StringVar(&opts.zone, "tz", domain.DefaultLocalZone, "local time zone for -csv")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if (opts.csvPath == "") == !opts.fetch {
		fs.Usage()
		return options{}, errors.New("exactly one of -csv or -fetch is required")
	}
	opts.now = time.Now().UTC()
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return options{}, fmt.Errorf("-now: %w", err)
		}
		opts.now = t
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "inspect: %v\n", err)
		return 2
	}

	origin, body, loc, err := load(opts)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	res, err := domain.ParseCSV(bytes.NewReader(body), loc)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintf(stderr, "FATAL: %v\n", schemaErr)
		} else {
			fmt.Fprintf(stderr, "FATAL: parse: %v\n", err)
		}
		return 1
	}

	report(stdout, origin, domain.NewDataset(domain.Query{}, origin, opts.now, res), opts.now)
	return 0
}

// load returns the document origin (redacted for live fetches), its bytes and
// the zone used for local timestamps.
func load(opts options) (string, []byte, *time.Location, error) {
	if opts.csvPath != "" {
		loc, err := time.LoadLocation(opts.zone)
		if err != nil {
			return "", nil, nil, fmt.Errorf("-tz: %w", err)
		}
		body, err := os.ReadFile(opts.csvPath)
		if err != nil {
			return "", nil, nil, fmt.Errorf("read %s: %w", opts.csvPath, err)
		}
		return opts.csvPath, body, loc, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := firms.NewClient(firms.ClientConfig{
		MapKey:  cfg.MapKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, observability.NewMetrics(), logger)

	q := cfg.Query(opts.days)
	if err := q.Validate(); err != nil {
		return "", nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	payload, err := client.Fetch(ctx, q)
	if err != nil {
		return "", nil, nil, err
	}
	return payload.URL, payload.Body, cfg.Location, nil
}

// histogram counts labels while remembering first-seen order.
type histogram struct {
	order  []string
	counts map[string]int
}

func newHistogram(labels ...string) *histogram {
	h := &histogram{counts: make(map[string]int)}
	for _, l := range labels {
		h.order = append(h.order, l)
		h.counts[l] = 0
	}
	return h
}

func (h *histogram) add(label string) {
	if _, ok := h.counts[label]; !ok {
		h.order = append(h.order, label)
	}
	h.counts[label]++
}

func (h *histogram) print(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, l := range h.order {
		fmt.Fprintf(w, "  %-10s %d\n", l, h.counts[l])
	}
}

func report(w io.Writer, origin string, ds domain.Dataset, now time.Time) {
	tierNames := make([]string, 0, 4)
	for _, t := range domain.AgeTiers() {
		tierNames = append(tierNames, t.Name)
	}
	tiers := newHistogram(tierNames...)
	severity := newHistogram(string(domain.SeverityActive), string(domain.SeverityModerate), string(domain.SeverityResidual), "none")
	footprint := newHistogram(string(domain.FootprintSmall), string(domain.FootprintMedium), string(domain.FootprintLarge))

	for _, m := range domain.BuildMarkers(ds, now) {
		tiers.add(m.AgeTier)
		sev := string(m.Severity)
		if m.Severity == domain.SeverityNone {
			sev = "none"
		}
		severity.add(sev)
		footprint.add(string(m.FootprintClass))
	}

	fmt.Fprintln(w, "=== FIRMS Hotspot Inspection ===")
	fmt.Fprintf(w, "Source:   %s\n", origin)
	fmt.Fprintf(w, "As of:    %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Records:  %d\n", ds.Len())
	fmt.Fprintf(w, "Rejected: %d\n", len(ds.Rejected))
	fmt.Fprintln(w)

	if ds.Empty() {
		fmt.Fprintln(w, "No hotspots in this document.")
	} else {
		tiers.print(w, "Age tiers")
		severity.print(w, "Severity")
		footprint.print(w, "Footprint")
	}

	if len(ds.Rejected) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "--- Rejected rows ---")
		for i, e := range ds.Rejected {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e.Error())
		}
	}
}
