package phase

import (
	"testing"
	"time"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/geo"
)

var now = time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

func testCourse(startIn time.Duration) *course.Course {
	start := now.Add(startIn)
	return &course.Course{
		ID: "r1",
		Marks: []course.Mark{
			{ID: "m1", Name: "Pin", Type: course.MarkStartPin, Position: geo.LatLon{Lat: 0, Lon: 0}},
			{ID: "m2", Name: "Windward", Type: course.MarkWindward, Position: geo.LatLon{Lat: 0.01, Lon: 0}},
			{ID: "m3", Name: "Leeward", Type: course.MarkLeeward, Position: geo.LatLon{Lat: 0.001, Lon: 0.002}},
			{ID: "m4", Name: "Finish", Type: course.MarkFinish, Position: geo.LatLon{Lat: 0, Lon: 0.004}},
		},
		Legs: []course.Leg{
			{ID: "leg-1", From: "m1", To: "m2", Type: course.LegUpwind},
			{ID: "leg-2", From: "m2", To: "m3", Type: course.LegDownwind},
			{ID: "leg-3", From: "m3", To: "m4", Type: course.LegReach},
		},
		StartTime: &start,
	}
}

func fixAt(p geo.LatLon) *Fix {
	return &Fix{Position: p, Timestamp: now}
}

func TestPreStartSequence(t *testing.T) {
	d := NewDetector()

	ctx := d.Evaluate(testCourse(10*time.Minute), fixAt(geo.LatLon{Lat: -0.001, Lon: 0}), now)
	if ctx.Phase != PreStart {
		t.Errorf("phase at T-10m = %s; want pre_start", ctx.Phase)
	}

	ctx = d.Evaluate(testCourse(30*time.Second), fixAt(geo.LatLon{Lat: -0.001, Lon: 0}), now)
	if ctx.Phase != StartSequence {
		t.Errorf("phase at T-30s = %s; want start_sequence", ctx.Phase)
	}
	if ctx.TimeToStartSeconds == nil || *ctx.TimeToStartSeconds != 30.0 {
		t.Errorf("timeToStart = %v; want 30", ctx.TimeToStartSeconds)
	}
}

func TestGunFromColdStart(t *testing.T) {
	d := NewDetector()
	ctx := d.Evaluate(testCourse(-5*time.Second), fixAt(geo.LatLon{Lat: 0, Lon: 0}), now)
	if ctx.Phase != Racing {
		t.Errorf("phase at T+5s with no prior phase = %s; want racing", ctx.Phase)
	}
	if ctx.CurrentLegID != "leg-1" {
		t.Errorf("leg = %s; want leg-1", ctx.CurrentLegID)
	}
	if ctx.DistanceToNextMarkNm == nil || ctx.BearingToNextMarkDeg == nil {
		t.Error("distance/bearing to next mark = nil; want values while racing")
	}
}

func roundMark(t *testing.T, d *Detector, c *course.Course, mark geo.LatLon) {
	t.Helper()
	// approach from the south into the rounding zone, then exit north of it
	south := geo.Destination(mark, 180, 30)
	north := geo.Destination(mark, 0, 30)
	d.Evaluate(c, fixAt(south), now)
	d.Evaluate(c, fixAt(north), now)
}

func TestLegAdvanceOnRounding(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()

	ctx := d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)
	if ctx.Phase != Racing || ctx.CurrentLegID != "leg-1" {
		t.Fatalf("ctx = %+v; want racing on leg-1", ctx)
	}

	roundMark(t, d, c, c.Marks[1].Position)
	ctx = d.Last()
	if ctx.CurrentLegID != "leg-2" {
		t.Errorf("leg after rounding windward = %s; want leg-2", ctx.CurrentLegID)
	}
}

func TestProximityAloneDoesNotAdvance(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()
	d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)

	// sail into the zone and straight back out the same side
	south := geo.Destination(c.Marks[1].Position, 180, 30)
	farSouth := geo.Destination(c.Marks[1].Position, 180, 200)
	d.Evaluate(c, fixAt(south), now)
	ctx := d.Evaluate(c, fixAt(farSouth), now)
	if ctx.CurrentLegID != "leg-1" {
		t.Errorf("leg after near-miss = %s; want still leg-1", ctx.CurrentLegID)
	}
}

func TestNoRegressionToEarlierLeg(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()
	d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)
	roundMark(t, d, c, c.Marks[1].Position)
	if d.Last().CurrentLegID != "leg-2" {
		t.Fatalf("leg = %s; want leg-2 before regression check", d.Last().CurrentLegID)
	}

	// back near the already-rounded windward mark
	ctx := d.Evaluate(c, fixAt(geo.Destination(c.Marks[1].Position, 90, 20)), now)
	if ctx.CurrentLegID != "leg-2" {
		t.Errorf("leg after revisiting mark 1 = %s; want leg-2 (monotonic)", ctx.CurrentLegID)
	}
}

func TestFinishOnProximity(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()
	d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)
	roundMark(t, d, c, c.Marks[1].Position)
	roundMark(t, d, c, c.Marks[2].Position)
	if d.Last().CurrentLegID != "leg-3" {
		t.Fatalf("leg = %s; want leg-3 before finish", d.Last().CurrentLegID)
	}

	ctx := d.Evaluate(c, fixAt(geo.Destination(c.Marks[3].Position, 270, 20)), now)
	if ctx.Phase != Finished {
		t.Errorf("phase at finish mark = %s; want finished", ctx.Phase)
	}
}

func TestMissingFixHoldsPhase(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()
	d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)

	ctx := d.Evaluate(c, nil, now)
	if ctx.Phase != Racing {
		t.Errorf("phase after GPS loss = %s; want held racing", ctx.Phase)
	}

	ctx = d.Evaluate(nil, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)
	if ctx.Phase != Racing {
		t.Errorf("phase after course loss = %s; want held racing", ctx.Phase)
	}
}

func TestReset(t *testing.T) {
	c := testCourse(-1 * time.Minute)
	d := NewDetector()
	d.Evaluate(c, fixAt(geo.LatLon{Lat: 0.002, Lon: 0}), now)
	if d.Last().Phase != Racing {
		t.Fatalf("phase = %s; want racing before reset", d.Last().Phase)
	}

	d.Reset()
	if d.Last().Phase != PreRace {
		t.Errorf("phase after reset = %s; want pre_race", d.Last().Phase)
	}
}

func TestNoStartTimeStaysPreRace(t *testing.T) {
	c := testCourse(time.Minute)
	c.StartTime = nil
	d := NewDetector()
	ctx := d.Evaluate(c, fixAt(geo.LatLon{Lat: 0, Lon: 0}), now)
	if ctx.Phase != PreRace {
		t.Errorf("phase with no start time = %s; want pre_race", ctx.Phase)
	}
}
