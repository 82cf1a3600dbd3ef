package model

import (
	"time"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/geo"
	"github.com/a-bouts/tactics-server/phase"
)

// Course is the mark-source payload: raw records in whatever schema the
// upstream persistence layer uses, plus optional race metadata.
type Course struct {
	Marks    []course.RawMark `json:"marks"`
	Metadata *course.Metadata `json:"metadata,omitempty"`
}

// Environment carries the source tiers for the snapshot extractor. Any
// tier, and any reading inside a tier, may be missing.
type Environment struct {
	Live      *env.Readings `json:"live,omitempty"`
	Record    *env.Readings `json:"record,omitempty"`
	Metadata  *env.Readings `json:"metadata,omitempty"`
	BoatDraft float64       `json:"boatDraft,omitempty"`
}

// Fix is one GPS report from the position feed.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (f Fix) ToPhase() *phase.Fix {
	return &phase.Fix{
		Position:   geo.LatLon{Lat: f.Latitude, Lon: f.Longitude},
		HeadingDeg: f.Heading,
		SpeedKt:    f.Speed,
		Timestamp:  f.Timestamp,
	}
}
