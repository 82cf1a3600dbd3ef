package env

import "time"

type WindSnapshot struct {
	SpeedKt      float64   `json:"speed"`
	DirectionDeg float64   `json:"direction"`
	GustKt       *float64  `json:"gust,omitempty"`
	Forecast     string    `json:"forecast,omitempty"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

type CurrentType string

const (
	CurrentFlooding CurrentType = "flooding"
	CurrentEbbing   CurrentType = "ebbing"
	CurrentSlack    CurrentType = "slack"
)

type CurrentSnapshot struct {
	SpeedKt      float64     `json:"speed"`
	DirectionDeg float64     `json:"direction"`
	Type         CurrentType `json:"type"`
	FetchedAt    time.Time   `json:"fetchedAt"`
}

type TideTrend string

const (
	TideRising  TideTrend = "rising"
	TideFalling TideTrend = "falling"
	TideSlack   TideTrend = "slack"
)

type TideSnapshot struct {
	HeightM   float64   `json:"height"`
	Trend     TideTrend `json:"trend"`
	RateMHr   float64   `json:"rate"`
	RangeM    float64   `json:"range"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type DepthSnapshot struct {
	CurrentM   float64   `json:"current"`
	MinimumM   float64   `json:"minimum"`
	Trend      TideTrend `json:"trend"`
	ClearanceM float64   `json:"clearance"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Snapshot groups the canonical environment readings. Any field may be nil:
// absence propagates, it is never defaulted to zero.
type Snapshot struct {
	Wind    *WindSnapshot    `json:"wind,omitempty"`
	Current *CurrentSnapshot `json:"current,omitempty"`
	Tide    *TideSnapshot    `json:"tide,omitempty"`
	Depth   *DepthSnapshot   `json:"depth,omitempty"`
}

type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// CurrentStrength tags a current speed for display severity. It plays no
// part in zone geometry.
func CurrentStrength(speedKt float64) Strength {
	if speedKt >= 1.5 {
		return StrengthStrong
	}
	if speedKt >= 0.7 {
		return StrengthModerate
	}
	return StrengthWeak
}
