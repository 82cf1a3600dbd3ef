package zones

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/geo"
)

type Kind string

const (
	FavoredLeft      Kind = "favored-left"
	FavoredRight     Kind = "favored-right"
	LaylinePort      Kind = "layline-port"
	LaylineStarboard Kind = "layline-starboard"
	CurrentRelief    Kind = "current-relief"
)

// Zone is a named region or line with a tactical rationale. Zones are
// recomputed whole from one course and one snapshot set, never patched.
type Zone struct {
	ID        string       `json:"id"`
	Kind      Kind         `json:"kind"`
	Name      string       `json:"name"`
	Rationale string       `json:"rationale"`
	Points    []geo.LatLon `json:"points"`
}

type Input struct {
	Wind    *env.WindSnapshot
	Current *env.CurrentSnapshot
	Tide    *env.TideSnapshot
	Depth   *env.DepthSnapshot
	Course  *course.Course
	Venue   string
}

const (
	metersPerNm     = 1852.0
	laylineLengthNm = 3.0
	// wind shifts inside this band are noise, not a favored side
	shiftThresholdDeg  = 5.0
	reliefMinCurrentKt = 0.7
)

// Generate derives the tactical zones for one course and one environment
// snapshot set. Missing wind, current, or usable course geometry yields an
// empty list: not yet computable, not "no advantage".
func Generate(in Input) []Zone {
	if in.Wind == nil || in.Current == nil || in.Course == nil {
		return nil
	}
	if in.Course.StartLine == nil && len(in.Course.Legs) == 0 {
		return nil
	}

	var zones []Zone

	if z := laylines(in); z != nil {
		zones = append(zones, z...)
	}
	if z := favoredSide(in); z != nil {
		zones = append(zones, *z)
	}
	if z := currentRelief(in); z != nil {
		zones = append(zones, *z)
	}

	return zones
}

// signedDelta maps a bearing difference into (-180, 180].
func signedDelta(a, b float64) float64 {
	d := math.Mod(geo.Wrap360(a)-geo.Wrap360(b)+540.0, 360.0) - 180.0
	if d <= -180.0 {
		d += 360.0
	}
	return d
}

// beatAxis is the leg the favored-side and relief geometry hangs off: the
// first upwind leg, else the first leg.
func beatAxis(c *course.Course) *course.Leg {
	for i := range c.Legs {
		if c.Legs[i].Type == course.LegUpwind {
			return &c.Legs[i]
		}
	}
	if len(c.Legs) > 0 {
		return &c.Legs[0]
	}
	return nil
}

func laylines(in Input) []Zone {
	var windward *course.Mark
	for i := range in.Course.Marks {
		if in.Course.Marks[i].Type == course.MarkWindward {
			windward = &in.Course.Marks[i]
			break
		}
	}
	if windward == nil {
		return nil
	}

	length := laylineLengthNm * metersPerNm
	if leg := beatAxis(in.Course); leg != nil {
		if cap := 2.0 * leg.DistanceNm * metersPerNm; cap < length {
			length = cap
		}
	}

	downwind := geo.Wrap360(in.Wind.DirectionDeg + 180.0)
	mk := func(kind Kind, offset float64, tack string) Zone {
		end := geo.Destination(windward.Position, geo.Wrap360(downwind+offset), length)
		return Zone{
			ID:        uuid.NewString(),
			Kind:      kind,
			Name:      fmt.Sprintf("%s layline", tack),
			Rationale: fmt.Sprintf("single-%s fetch to %s in %.0f° wind", tack, windward.Name, in.Wind.DirectionDeg),
			Points:    []geo.LatLon{windward.Position, end},
		}
	}

	return []Zone{
		mk(LaylineStarboard, -45.0, "starboard"),
		mk(LaylinePort, 45.0, "port"),
	}
}

func favoredSide(in Input) *Zone {
	leg := beatAxis(in.Course)
	if leg == nil {
		return nil
	}
	from := in.Course.MarkByID(leg.From)
	to := in.Course.MarkByID(leg.To)
	if from == nil || to == nil {
		return nil
	}

	shift := signedDelta(in.Wind.DirectionDeg, leg.Heading)

	// cross-course current set adds leverage toward the up-set side
	cross := in.Current.SpeedKt * math.Sin(toRadians(signedDelta(in.Current.DirectionDeg, leg.Heading)))
	score := shift - cross*10.0

	if math.Abs(score) < shiftThresholdDeg {
		return nil
	}

	kind := FavoredRight
	side := geo.Wrap360(leg.Heading + 90.0)
	if score < 0 {
		kind = FavoredLeft
		side = geo.Wrap360(leg.Heading - 90.0)
	}

	width := leg.DistanceNm * metersPerNm * 0.25
	z := Zone{
		ID:   uuid.NewString(),
		Kind: kind,
		Name: fmt.Sprintf("%s side of the beat", string(kind)[8:]),
		Rationale: fmt.Sprintf("wind shifted %.0f° off the %s axis, current set %.1f kt at %.0f°",
			shift, leg.Name, in.Current.SpeedKt, in.Current.DirectionDeg),
		Points: []geo.LatLon{
			from.Position,
			geo.Destination(from.Position, side, width),
			geo.Destination(to.Position, side, width),
			to.Position,
		},
	}
	return &z
}

func currentRelief(in Input) *Zone {
	if in.Current.SpeedKt < reliefMinCurrentKt {
		return nil
	}
	leg := beatAxis(in.Course)
	if leg == nil {
		return nil
	}
	from := in.Course.MarkByID(leg.From)
	to := in.Course.MarkByID(leg.To)
	if from == nil || to == nil {
		return nil
	}

	// the up-set edge of the course carries the least adverse set
	side := geo.Wrap360(in.Current.DirectionDeg + 180.0)
	legLen := leg.DistanceNm * metersPerNm
	inner := legLen * 0.3
	outer := legLen * 0.45

	rationale := fmt.Sprintf("%s %s current, relief along the up-set edge",
		env.CurrentStrength(in.Current.SpeedKt), in.Current.Type)
	if in.Tide != nil {
		rationale += fmt.Sprintf(" (tide %s at %.1f m)", in.Tide.Trend, in.Tide.HeightM)
	}

	z := Zone{
		ID:        uuid.NewString(),
		Kind:      CurrentRelief,
		Name:      "current relief",
		Rationale: rationale,
		Points: []geo.LatLon{
			geo.Destination(from.Position, side, inner),
			geo.Destination(from.Position, side, outer),
			geo.Destination(to.Position, side, outer),
			geo.Destination(to.Position, side, inner),
		},
	}
	return &z
}

func toRadians(a float64) float64 {
	return a * math.Pi / 180.0
}
