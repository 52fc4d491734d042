package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"grapeiq/internal/session"
	"grapeiq/pkg/grapeiq"
)

// Source is the subset of the API client the loader needs.
// *grapeiq.Client satisfies it.
type Source interface {
	TotalSales(ctx context.Context, sess *session.Session) float64
	TotalInventory(ctx context.Context, sess *session.Session) int64
	TotalInventoryValue(ctx context.Context, sess *session.Session) float64
	SalesByChannel(ctx context.Context, sess *session.Session) map[string]float64
	Sales(ctx context.Context, sess *session.Session) []grapeiq.SalesRecord
	Products(ctx context.Context, sess *session.Session) []grapeiq.ProductRecord
	Inventory(ctx context.Context, sess *session.Session) []grapeiq.InventoryRecord
}

// Snapshot is everything the dashboard shows apart from the forecast.
type Snapshot struct {
	TotalSales          float64
	TotalInventory      int64
	TotalInventoryValue float64
	SalesByChannel      map[string]float64

	Sales     []grapeiq.SalesRecord
	Products  []grapeiq.ProductRecord
	Inventory []grapeiq.InventoryRecord

	LoadedAt time.Time
}

// SKUSeries returns sales value per SKU.
func (s *Snapshot) SKUSeries() Series { return SalesBySKU(s.Sales) }

// ChannelSeries returns the per-channel figures.
func (s *Snapshot) ChannelSeries() Series { return ChannelSeries(s.SalesByChannel) }

// Load fetches the KPIs, the channel breakdown and the three record lists.
// Each fetch degrades to its default on failure, so Load only fails when
// ctx is cancelled. maxParallel < 2 runs the fetches one after another.
func Load(ctx context.Context, src Source, sess *session.Session, maxParallel int) (*Snapshot, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	start := time.Now()
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	// Each task writes a distinct field.
	tasks := []func(context.Context){
		func(ctx context.Context) { snap.TotalSales = src.TotalSales(ctx, sess) },
		func(ctx context.Context) { snap.TotalInventory = src.TotalInventory(ctx, sess) },
		func(ctx context.Context) { snap.TotalInventoryValue = src.TotalInventoryValue(ctx, sess) },
		func(ctx context.Context) { snap.SalesByChannel = src.SalesByChannel(ctx, sess) },
		func(ctx context.Context) { snap.Sales = src.Sales(ctx, sess) },
		func(ctx context.Context) { snap.Products = src.Products(ctx, sess) },
		func(ctx context.Context) { snap.Inventory = src.Inventory(ctx, sess) },
	}
	for _, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			task(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snap.SalesByChannel == nil {
		snap.SalesByChannel = map[string]float64{}
	}
	if snap.Sales == nil {
		snap.Sales = []grapeiq.SalesRecord{}
	}
	if snap.Products == nil {
		snap.Products = []grapeiq.ProductRecord{}
	}
	if snap.Inventory == nil {
		snap.Inventory = []grapeiq.InventoryRecord{}
	}
	snap.LoadedAt = time.Now()

	slog.Debug("dashboard loaded",
		"sales", len(snap.Sales),
		"products", len(snap.Products),
		"inventory", len(snap.Inventory),
		"parallel", maxParallel,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return snap, nil
}
