package provider

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/a-bouts/tactics-server/env"
)

// demoRow is one venue line of the bundled demo dataset.
type demoRow struct {
	Venue        string  `csv:"venue"`
	WindSpeed    float64 `csv:"wind_speed"`
	WindDir      float64 `csv:"wind_dir"`
	CurrentSpeed float64 `csv:"current_speed"`
	CurrentDir   float64 `csv:"current_dir"`
	CurrentType  string  `csv:"current_type"`
	TideHeight   float64 `csv:"tide_height"`
	TideTrend    string  `csv:"tide_trend"`
	TideRate     float64 `csv:"tide_rate"`
	TideRange    float64 `csv:"tide_range"`
	Depth        float64 `csv:"depth"`
	DepthMin     float64 `csv:"depth_min"`
}

// LoadDemo reads the demo/fallback environment dataset and returns the
// readings for one venue, or nil when the venue has no demo line. Demo data
// sits at the bottom of the precedence order and never overrides a real
// reading.
func LoadDemo(path, venue string) (*env.Readings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo data %s: %w", path, err)
	}

	var rows []demoRow
	if err := csvutil.Unmarshal(content, &rows); err != nil {
		return nil, fmt.Errorf("parse demo data %s: %w", path, err)
	}

	for _, row := range rows {
		if !strings.EqualFold(row.Venue, venue) {
			continue
		}
		now := time.Now()
		return &env.Readings{
			Wind: &env.WindSnapshot{
				SpeedKt:      row.WindSpeed,
				DirectionDeg: row.WindDir,
				Forecast:     "demo",
				FetchedAt:    now,
			},
			Current: &env.CurrentSnapshot{
				SpeedKt:      row.CurrentSpeed,
				DirectionDeg: row.CurrentDir,
				Type:         env.CurrentType(row.CurrentType),
				FetchedAt:    now,
			},
			Tide: &env.TideSnapshot{
				HeightM:   row.TideHeight,
				Trend:     env.TideTrend(row.TideTrend),
				RateMHr:   row.TideRate,
				RangeM:    row.TideRange,
				FetchedAt: now,
			},
			Depth: &env.DepthSnapshot{
				CurrentM:  row.Depth,
				MinimumM:  row.DepthMin,
				Trend:     env.TideTrend(row.TideTrend),
				FetchedAt: now,
			},
		}, nil
	}

	return nil, nil
}
