package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

// DefaultZoom is the initial map zoom for the configured bounding box.
const DefaultZoom = 7

// EmptyMessage is shown when a dataset has nothing to render.
const EmptyMessage = "No hotspots found, or the FIRMS map key is invalid. Widen the day window or check the key."

// ErrInvalidRequest marks request parameters outside the accepted range.
var ErrInvalidRequest = errors.New("invalid request")

// DatasetProvider returns hotspot datasets for a query.
type DatasetProvider interface {
	Get(ctx context.Context, q domain.Query, forceRefresh bool) (domain.Dataset, error)
	FetchCount() int64
}

// Pipeline turns cached FIRMS datasets into map views and resolves clicks.
// It is shared by all requests for the life of the process.
type Pipeline struct {
	provider DatasetProvider
	base     domain.Query
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline. base supplies the bounding box, source and default
// day window of every request.
func New(provider DatasetProvider, base domain.Query, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		provider: provider,
		base:     base,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// ViewRequest selects the day window of a map view.
type ViewRequest struct {
	Days         int // zero means the configured default
	ForceRefresh bool
}

// View is everything the presentation layer needs to draw the map.
type View struct {
	Query        domain.Query         `json:"query"`
	URL          string               `json:"url"`
	FetchedAt    time.Time            `json:"fetched_at"`
	GeneratedAt  time.Time            `json:"generated_at"`
	FetchCount   int64                `json:"fetch_count"`
	Center       domain.Geo           `json:"center"`
	Zoom         int                  `json:"zoom"`
	Legend       []domain.LegendEntry `json:"legend"`
	Markers      []domain.Marker      `json:"markers"`
	RejectedRows int                  `json:"rejected_rows"`
	Empty        bool                 `json:"empty"`
	Message      string               `json:"message,omitempty"`
}

// View loads the dataset for req and classifies every record against the
// current time.
func (p *Pipeline) View(ctx context.Context, req ViewRequest) (View, error) {
	q, err := p.query(req.Days)
	if err != nil {
		return View{}, err
	}

	ds, err := p.provider.Get(ctx, q, req.ForceRefresh)
	if err != nil {
		p.logger.Error("load hotspot dataset", "days", q.Days, "force", req.ForceRefresh, "error", err)
		return View{}, err
	}
	p.ready.Store(true)

	now := p.clock.Now()
	v := View{
		Query:        ds.Query,
		URL:          ds.URL,
		FetchedAt:    ds.FetchedAt,
		GeneratedAt:  now,
		FetchCount:   p.provider.FetchCount(),
		Center:       q.BBox.Center(),
		Zoom:         DefaultZoom,
		Legend:       domain.Legend(),
		Markers:      domain.BuildMarkers(ds, now),
		RejectedRows: len(ds.Rejected),
		Empty:        ds.Empty(),
	}
	if v.Empty {
		v.Message = EmptyMessage
	}
	return v, nil
}

// SelectRequest is a map click inside the view for Days.
type SelectRequest struct {
	Days int
	Lat  float64
	Lon  float64
}

// Select resolves a click to the detail projection of the matching hotspot.
// A miss returns false with a nil error.
func (p *Pipeline) Select(ctx context.Context, req SelectRequest) (domain.Details, bool, error) {
	if math.IsNaN(req.Lat) || math.IsNaN(req.Lon) || math.Abs(req.Lat) > 90 || math.Abs(req.Lon) > 180 {
		return domain.Details{}, false, fmt.Errorf("%w: coordinate %v,%v out of range", ErrInvalidRequest, req.Lat, req.Lon)
	}
	q, err := p.query(req.Days)
	if err != nil {
		return domain.Details{}, false, err
	}

	ds, err := p.provider.Get(ctx, q, false)
	if err != nil {
		return domain.Details{}, false, err
	}
	p.ready.Store(true)

	rec, ok := domain.Resolve(ds, req.Lat, req.Lon)
	if !ok {
		p.metrics.Selections.WithLabelValues("miss").Inc()
		return domain.Details{}, false, nil
	}
	p.metrics.Selections.WithLabelValues("hit").Inc()
	return domain.DetailsFor(rec), true, nil
}

// CheckReadiness returns nil once a dataset has been loaded successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no hotspot dataset has been loaded yet")
	}
	return nil
}

// Ready reports whether a dataset has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run keeps the default view warm: it loads the default dataset at once and
// again every interval until ctx is cancelled. Failed loads are retried with
// exponential backoff capped at interval.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "interval", interval, "days", p.base.Days)

	const initialBackoff = time.Second
	backoff := initialBackoff

	for {
		wait := interval
		if _, err := p.provider.Get(ctx, p.base, false); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Warn("warm default dataset failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, interval)
		} else {
			p.ready.Store(true)
			backoff = initialBackoff
		}

		if !p.sleep(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// query applies a day window to the base query and validates it.
func (p *Pipeline) query(days int) (domain.Query, error) {
	q := p.base
	if days != 0 {
		q.Days = days
	}
	if err := q.Validate(); err != nil {
		return domain.Query{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return q, nil
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
