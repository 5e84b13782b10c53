package cli

import (
	"fmt"

	"github.com/estensen/roi-dashboard/internal/dedup"
	"github.com/estensen/roi-dashboard/internal/presenter"
)

func (a *app) deduplicator() *dedup.LedgerDeduplicator {
	return dedup.NewDeduplicator(
		dedup.WithTolerance(dedup.Tolerance{
			Absolute: a.cfg.Dedup.AbsoluteTolerance,
			Relative: a.cfg.Dedup.RelativeTolerance,
		}),
		dedup.WithLogger(a.logger),
	)
}

func (a *app) presenterOptions() ([]presenter.Option, error) {
	loc, err := a.cfg.Display.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone: %w", err)
	}
	return []presenter.Option{
		presenter.WithLocation(loc),
		presenter.WithDateLayout(a.cfg.Display.DateLayout),
	}, nil
}
