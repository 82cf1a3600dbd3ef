package course

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a-bouts/tactics-server/geo"
)

// RawPoint carries every coordinate spelling seen in upstream mark records.
type RawPoint struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (p *RawPoint) latlon() (geo.LatLon, bool) {
	if p == nil {
		return geo.LatLon{}, false
	}
	lat := p.Lat
	if lat == nil {
		lat = p.Latitude
	}
	lon := p.Lon
	if lon == nil {
		lon = p.Longitude
	}
	if lat == nil || lon == nil {
		return geo.LatLon{}, false
	}
	return geo.LatLon{Lat: *lat, Lon: *lon}, true
}

// RawMark is a schema-tolerant upstream mark record.
type RawMark struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	Rounding    string    `json:"rounding,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Coordinates *RawPoint `json:"coordinates,omitempty"`
	Position    *RawPoint `json:"position,omitempty"`
}

// coordinateAccessors are tried in precedence order, stopping at the first
// hit. Keeps the fallback chains out of the builder itself.
var coordinateAccessors = []func(RawMark) (geo.LatLon, bool){
	func(r RawMark) (geo.LatLon, bool) {
		if r.Lat != nil && r.Lon != nil {
			return geo.LatLon{Lat: *r.Lat, Lon: *r.Lon}, true
		}
		return geo.LatLon{}, false
	},
	func(r RawMark) (geo.LatLon, bool) {
		if r.Latitude != nil && r.Longitude != nil {
			return geo.LatLon{Lat: *r.Latitude, Lon: *r.Longitude}, true
		}
		return geo.LatLon{}, false
	},
	func(r RawMark) (geo.LatLon, bool) { return r.Coordinates.latlon() },
	func(r RawMark) (geo.LatLon, bool) { return r.Position.latlon() },
}

func extractPosition(r RawMark) (geo.LatLon, bool) {
	for _, accessor := range coordinateAccessors {
		if p, ok := accessor(r); ok && geo.Finite(p) {
			return p, true
		}
	}
	return geo.LatLon{}, false
}

// ClassifyMark maps a raw type and name onto the canonical mark types.
// Explicit type values win, then keyword heuristics on type and name.
// Best-effort against dirty data; keyword tables are English-only and
// unresolvable inputs fall back to windward.
func ClassifyMark(rawType, name string) MarkType {
	t := strings.ToLower(strings.TrimSpace(rawType))
	n := strings.ToLower(name)

	switch t {
	case "start-pin", "start_pin", "pin":
		return MarkStartPin
	case "start-boat", "start_boat", "committee", "committee-boat":
		return MarkStartBoat
	case "windward", "weather", "top":
		return MarkWindward
	case "leeward", "gate", "bottom":
		return MarkLeeward
	case "offset", "spacer":
		return MarkOffset
	case "finish":
		return MarkFinish
	}

	if strings.Contains(t, "start") {
		if strings.Contains(t, "pin") || strings.Contains(n, "pin") {
			return MarkStartPin
		}
		if strings.Contains(t, "boat") || strings.Contains(n, "boat") || strings.Contains(n, "committee") {
			return MarkStartBoat
		}
	}

	if strings.Contains(n, "finish") {
		return MarkFinish
	}
	if strings.Contains(n, "gate") || strings.Contains(n, "leeward") {
		return MarkLeeward
	}
	if strings.Contains(n, "offset") {
		return MarkOffset
	}
	if strings.Contains(n, "pin") {
		return MarkStartPin
	}
	if strings.Contains(n, "committee") || strings.Contains(n, "boat") {
		return MarkStartBoat
	}

	return MarkWindward
}

func normalizeRounding(raw string) Rounding {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "port", "p":
		return RoundingPort
	case "starboard", "stbd", "s":
		return RoundingStarboard
	}
	return RoundingNone
}

// StartLineMeta is the optional explicit start line from race metadata.
type StartLineMeta struct {
	Port      *RawPoint `json:"port,omitempty"`
	Starboard *RawPoint `json:"starboard,omitempty"`
}

// Metadata is the optional race-level context attached to a mark set.
type Metadata struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	StartLine *StartLineMeta `json:"startLine,omitempty"`
	StartTime *time.Time     `json:"startTime,omitempty"`
	Laps      int            `json:"laps,omitempty"`
}

const metersPerNm = 1852.0

// nominal boat speeds used only for coarse leg time estimates
const (
	upwindSpeedKt  = 4.5
	offwindSpeedKt = 6.0
)

// Build converts raw marks plus optional metadata into a Course.
// windDirection, when known, drives leg classification; nil falls back to
// the alternation heuristic. Returns nil below 2 usable marks.
func Build(raws []RawMark, meta *Metadata, windDirection *float64) *Course {
	marks := make([]Mark, 0, len(raws))
	seen := make(map[string]bool)

	for _, raw := range raws {
		pos, ok := extractPosition(raw)
		if !ok {
			// malformed record, drop it and keep the rest
			continue
		}
		typ := ClassifyMark(raw.Type, raw.Name)
		key := raw.Name + "|" + string(typ)
		if seen[key] {
			continue
		}
		seen[key] = true

		id := raw.ID
		if id == "" {
			id = uuid.NewString()
		}
		marks = append(marks, Mark{
			ID:       id,
			Name:     raw.Name,
			Position: pos,
			Type:     typ,
			Rounding: normalizeRounding(raw.Rounding),
		})
	}

	if len(marks) < 2 {
		return nil
	}

	c := &Course{
		Marks: marks,
		Legs:  buildLegs(marks, windDirection),
	}
	c.StartLine = buildStartLine(marks, meta)

	if meta != nil {
		c.ID = meta.ID
		c.Name = meta.Name
		c.StartTime = meta.StartTime
		c.Laps = meta.Laps
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	for _, l := range c.Legs {
		c.TotalDistanceNm += l.DistanceNm
	}
	if c.Laps > 1 {
		c.TotalDistanceNm *= float64(c.Laps)
	}

	return c
}

func buildStartLine(marks []Mark, meta *Metadata) *StartLine {
	if meta != nil && meta.StartLine != nil {
		port, okP := meta.StartLine.Port.latlon()
		stbd, okS := meta.StartLine.Starboard.latlon()
		if okP && okS && geo.Finite(port) && geo.Finite(stbd) {
			return newStartLine(port, stbd)
		}
	}

	var pin, boat *Mark
	for i := range marks {
		switch marks[i].Type {
		case MarkStartPin:
			if pin == nil {
				pin = &marks[i]
			}
		case MarkStartBoat:
			if boat == nil {
				boat = &marks[i]
			}
		}
	}
	if pin == nil || boat == nil {
		// missing line means unknown, never a zero-length default
		return nil
	}
	return newStartLine(pin.Position, boat.Position)
}

func newStartLine(port, starboard geo.LatLon) *StartLine {
	length, heading := geo.DistanceAndBearingTo(port, starboard)
	return &StartLine{
		Port:      port,
		Starboard: starboard,
		Center:    geo.Midpoint(port, starboard),
		Heading:   heading,
		Length:    length,
	}
}

// classifyLeg buckets a leg heading against the wind direction: within 60°
// of dead upwind or dead downwind, else a reach. Wind direction is where
// the wind blows from, so sailing into it means heading toward it.
func classifyLeg(heading float64, windDirection float64) LegType {
	if geo.AngleDelta(heading, windDirection) <= 60.0 {
		return LegUpwind
	}
	if geo.AngleDelta(heading, geo.Wrap360(windDirection+180.0)) <= 60.0 {
		return LegDownwind
	}
	return LegReach
}

// fallbackLegType is the no-wind heuristic: first leg upwind, then
// alternating downwind and reach.
func fallbackLegType(index int) LegType {
	if index == 0 {
		return LegUpwind
	}
	if index%2 == 1 {
		return LegDownwind
	}
	return LegReach
}

func buildLegs(marks []Mark, windDirection *float64) []Leg {
	legs := make([]Leg, 0, len(marks)-1)
	for i := 0; i+1 < len(marks); i++ {
		from := marks[i]
		to := marks[i+1]
		dist, heading := geo.DistanceAndBearingTo(from.Position, to.Position)

		leg := Leg{
			ID:         fmt.Sprintf("leg-%d", i+1),
			Name:       from.Name + " → " + to.Name,
			From:       from.ID,
			To:         to.ID,
			DistanceNm: dist / metersPerNm,
			Heading:    heading,
		}
		if windDirection != nil {
			leg.Type = classifyLeg(heading, *windDirection)
		} else {
			leg.Type = fallbackLegType(i)
		}

		speed := offwindSpeedKt
		if leg.Type == LegUpwind {
			speed = upwindSpeedKt
		}
		leg.EstimatedTimeSec = leg.DistanceNm / speed * 3600.0

		legs = append(legs, leg)
	}
	return legs
}
