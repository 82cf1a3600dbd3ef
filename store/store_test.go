package store

import (
	"testing"
	"time"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/geo"
	"github.com/a-bouts/tactics-server/phase"
)

type recorder struct {
	counts map[string]int
}

func newRecorder() *recorder {
	return &recorder{counts: make(map[string]int)}
}

func (r *recorder) Publish(slice string, payload interface{}) {
	r.counts[slice]++
}

func f(v float64) *float64 {
	return &v
}

var testNow = time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

func testStore() (*Store, *recorder) {
	s := New("marseille", 1.8)
	s.now = func() time.Time { return testNow }
	r := newRecorder()
	s.Attach(r)
	return s, r
}

func testMarks() []course.RawMark {
	return []course.RawMark{
		{ID: "m1", Name: "Pin", Type: "start-pin", Lat: f(0), Lon: f(0)},
		{ID: "m2", Name: "Committee", Type: "start-boat", Lat: f(0), Lon: f(0.001)},
		{ID: "m3", Name: "Windward", Type: "windward", Lat: f(0.01), Lon: f(0.0005)},
	}
}

func testSources() env.Sources {
	return env.Sources{
		Live: &env.Readings{
			Wind:    &env.WindSnapshot{SpeedKt: 12, DirectionDeg: 0},
			Current: &env.CurrentSnapshot{SpeedKt: 1.0, DirectionDeg: 90, Type: env.CurrentEbbing},
		},
	}
}

func TestStoreDerivesCourseAndZones(t *testing.T) {
	s, _ := testStore()
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1"})
	s.SetEnvironment(testSources())

	state := s.Snapshot()
	if state.Course == nil {
		t.Fatal("course = nil; want built course")
	}
	if len(state.Zones) == 0 {
		t.Error("zones empty; want zones once wind, current and course are set")
	}
	if state.Environment.Wind == nil {
		t.Error("environment wind = nil; want extracted snapshot")
	}
}

func TestStoreFingerprintGating(t *testing.T) {
	s, r := testStore()
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1"})
	s.SetEnvironment(testSources())

	courseBefore := r.counts[SliceCourse]
	zonesBefore := r.counts[SliceZones]

	// identical inputs again: fingerprints match, nothing recomputed
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1"})
	s.SetEnvironment(testSources())

	if r.counts[SliceCourse] != courseBefore {
		t.Errorf("course published %d times; want %d (unchanged input gated)", r.counts[SliceCourse], courseBefore)
	}
	if r.counts[SliceZones] != zonesBefore {
		t.Errorf("zones published %d times; want %d (unchanged input gated)", r.counts[SliceZones], zonesBefore)
	}

	// a real wind change invalidates both
	src := testSources()
	src.Live.Wind.DirectionDeg = 30
	s.SetEnvironment(src)
	if r.counts[SliceZones] != zonesBefore+1 {
		t.Errorf("zones published %d times after wind change; want %d", r.counts[SliceZones], zonesBefore+1)
	}
}

func TestStoreZonesEmptyWithoutWind(t *testing.T) {
	s, _ := testStore()
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1"})
	s.SetEnvironment(env.Sources{
		Live: &env.Readings{Current: &env.CurrentSnapshot{SpeedKt: 1.0, DirectionDeg: 90}},
	})

	if z := s.Snapshot().Zones; len(z) != 0 {
		t.Errorf("zones = %d; want 0 without wind", len(z))
	}
}

func TestStorePhaseOnFix(t *testing.T) {
	s, _ := testStore()
	start := testNow.Add(-10 * time.Second)
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1", StartTime: &start})

	s.SetFix(&phase.Fix{Position: geo.LatLon{Lat: 0, Lon: 0}, Timestamp: testNow})
	if p := s.Snapshot().Phase.Phase; p != phase.Racing {
		t.Errorf("phase = %s; want racing after the gun", p)
	}

	// GPS dropout holds the last phase
	s.SetFix(nil)
	if p := s.Snapshot().Phase.Phase; p != phase.Racing {
		t.Errorf("phase after dropout = %s; want held racing", p)
	}
}

type slowPublisher struct {
	delay time.Duration
}

func (p *slowPublisher) Publish(slice string, payload interface{}) {
	time.Sleep(p.delay)
}

func TestSlowPublisherDoesNotBlockReaders(t *testing.T) {
	s, _ := testStore()
	start := testNow.Add(-10 * time.Second)
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1", StartTime: &start})

	s.Attach(&slowPublisher{delay: 300 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		s.SetFix(&phase.Fix{Position: geo.LatLon{Lat: 0, Lon: 0}, Timestamp: testNow})
		close(done)
	}()

	// let the fix take the lock, recompute and release before fan-out
	time.Sleep(50 * time.Millisecond)

	begin := time.Now()
	s.Snapshot()
	if d := time.Since(begin); d > 100*time.Millisecond {
		t.Errorf("Snapshot blocked %v behind a slow publisher; want immediate", d)
	}
	<-done
}

func TestStoreReset(t *testing.T) {
	s, _ := testStore()
	start := testNow.Add(-10 * time.Second)
	s.SetRawMarks(testMarks(), &course.Metadata{ID: "r1", StartTime: &start})
	s.SetFix(&phase.Fix{Position: geo.LatLon{Lat: 0, Lon: 0}, Timestamp: testNow})

	s.Reset()
	if p := s.Snapshot().Phase.Phase; p != phase.PreRace {
		t.Errorf("phase after reset = %s; want pre_race", p)
	}
}
