package phase

import (
	"time"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/geo"
)

type Phase string

const (
	PreRace       Phase = "pre_race"
	PreStart      Phase = "pre_start"
	StartSequence Phase = "start_sequence"
	Racing        Phase = "racing"
	Finished      Phase = "finished"
)

// Fix is one GPS position report. Heading and speed are provider-dependent
// and may be absent.
type Fix struct {
	Position   geo.LatLon `json:"position"`
	HeadingDeg *float64   `json:"heading,omitempty"`
	SpeedKt    *float64   `json:"speed,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Context is the derived race state published after every evaluation.
type Context struct {
	Phase                Phase    `json:"phase"`
	CurrentLegID         string   `json:"currentLegId,omitempty"`
	DistanceToNextMarkNm *float64 `json:"distanceToNextMarkNm,omitempty"`
	BearingToNextMarkDeg *float64 `json:"bearingToNextMarkDeg,omitempty"`
	TimeToStartSeconds   *float64 `json:"timeToStartSeconds,omitempty"`
}

const (
	startSequenceWindowSec = 120.0
	roundingRadiusM        = 50.0
	roundingSwingDeg       = 90.0
	metersPerNm            = 1852.0
)

// Detector classifies the current race phase. State only moves forward;
// a transient loss of position or course holds the last known phase, and
// only an explicit Reset (new race selected) rewinds it.
type Detector struct {
	phase    Phase
	legIndex int

	// rounding hysteresis for the current leg's destination mark
	inZone          bool
	approachBearing float64

	last Context
}

func NewDetector() *Detector {
	return &Detector{
		phase: PreRace,
		last:  Context{Phase: PreRace},
	}
}

// Reset rewinds the detector for a newly selected race. Never called on
// data loss.
func (d *Detector) Reset() {
	*d = *NewDetector()
}

// Last returns the most recently computed context.
func (d *Detector) Last() Context {
	return d.last
}

// Evaluate advances the state machine with one fix. A nil fix or course
// holds the previous context unchanged.
func (d *Detector) Evaluate(c *course.Course, fix *Fix, now time.Time) Context {
	if c == nil || fix == nil || !geo.Finite(fix.Position) {
		return d.last
	}

	var timeToStart *float64
	if c.StartTime != nil {
		tts := c.StartTime.Sub(now).Seconds()
		timeToStart = &tts
	}

	d.advancePreStart(timeToStart)
	if d.phase == Racing {
		d.advanceLegs(c, fix)
	}

	ctx := Context{
		Phase:              d.phase,
		TimeToStartSeconds: timeToStart,
	}
	if d.phase == Racing && d.legIndex < len(c.Legs) {
		leg := c.Legs[d.legIndex]
		ctx.CurrentLegID = leg.ID
		if mark := c.MarkByID(leg.To); mark != nil {
			dist, bearing := geo.DistanceAndBearingTo(fix.Position, mark.Position)
			nm := dist / metersPerNm
			ctx.DistanceToNextMarkNm = &nm
			ctx.BearingToNextMarkDeg = &bearing
		}
	}

	d.last = ctx
	return ctx
}

// advancePreStart runs the timing transitions. They cascade so a detector
// seeing its first fix after the gun lands directly in racing.
func (d *Detector) advancePreStart(timeToStart *float64) {
	if d.phase == PreRace && timeToStart != nil && *timeToStart > 0 {
		d.phase = PreStart
	}
	if d.phase == PreStart && timeToStart != nil && *timeToStart <= startSequenceWindowSec {
		d.phase = StartSequence
	}
	if timeToStart != nil && *timeToStart <= 0 {
		switch d.phase {
		case PreRace, PreStart, StartSequence:
			d.phase = Racing
			d.legIndex = 0
			d.inZone = false
		}
	}
}

func (d *Detector) advanceLegs(c *course.Course, fix *Fix) {
	if d.legIndex >= len(c.Legs) {
		return
	}
	leg := c.Legs[d.legIndex]
	mark := c.MarkByID(leg.To)
	if mark == nil {
		return
	}

	dist, bearing := geo.DistanceAndBearingTo(fix.Position, mark.Position)

	if mark.Type == course.MarkFinish && dist <= roundingRadiusM {
		d.phase = Finished
		return
	}

	if dist > roundingRadiusM {
		// sailed out of the zone without rounding
		d.inZone = false
		return
	}

	if !d.inZone {
		d.inZone = true
		d.approachBearing = bearing
		return
	}

	// still inside the zone: a large swing in the bearing to the mark means
	// the boat went around it, mere proximity does not
	if geo.AngleDelta(bearing, d.approachBearing) >= roundingSwingDeg {
		d.roundMark(c)
	}
}

func (d *Detector) roundMark(c *course.Course) {
	d.inZone = false
	if d.legIndex+1 < len(c.Legs) {
		d.legIndex++
		return
	}
	// past the last leg's mark with no finish mark typed: treat as finished
	d.phase = Finished
}
