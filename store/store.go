package store

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/tactics-server/course"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/phase"
	"github.com/a-bouts/tactics-server/zones"
)

// Publisher receives every derived slice after it is recomputed.
// Publishers may run network I/O; the store never calls them while holding
// its lock.
type Publisher interface {
	Publish(slice string, payload interface{})
}

const (
	SliceCourse      = "course"
	SliceEnvironment = "environment"
	SliceZones       = "zones"
	SlicePhase       = "phase"
)

// State is a consistent view of every derived value.
type State struct {
	Course      *course.Course `json:"course,omitempty"`
	Environment env.Snapshot   `json:"environment"`
	Zones       []zones.Zone   `json:"zones"`
	Phase       phase.Context  `json:"phase"`
	Fix         *phase.Fix     `json:"fix,omitempty"`
	Venue       string         `json:"venue,omitempty"`
}

// Store owns the engine's derived state. All writes go through the update
// methods so concurrent fixes and upstream refreshes cannot interleave
// partial writes; the engine functions themselves are pure.
type Store struct {
	mu sync.RWMutex

	now       func() time.Time
	boatDraft float64
	venue     string

	publishers []Publisher

	// upstream inputs
	rawMarks []course.RawMark
	meta     *course.Metadata
	sources  env.Sources
	fix      *phase.Fix

	// derived
	course   *course.Course
	snapshot env.Snapshot
	zoneList []zones.Zone
	detector *phase.Detector
	phaseCtx phase.Context

	// recompute gating
	courseFp string
	zonesFp  string

	// updates queued under the lock, delivered after it is released
	pending []update
}

type update struct {
	slice   string
	payload interface{}
}

func New(venue string, boatDraft float64) *Store {
	return &Store{
		now:       time.Now,
		venue:     venue,
		boatDraft: boatDraft,
		detector:  phase.NewDetector(),
		phaseCtx:  phase.Context{Phase: phase.PreRace},
	}
}

// Attach registers a publisher for derived-slice updates.
func (s *Store) Attach(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

func (s *Store) publish(slice string, payload interface{}) {
	s.pending = append(s.pending, update{slice: slice, payload: payload})
}

// drain hands back the queued updates and a snapshot of the publisher list.
// Called with the lock held; the caller delivers after releasing it so a
// slow publisher cannot stall fixes or readers.
func (s *Store) drain() ([]update, []Publisher) {
	updates := s.pending
	s.pending = nil
	pubs := make([]Publisher, len(s.publishers))
	copy(pubs, s.publishers)
	return updates, pubs
}

func deliver(updates []update, pubs []Publisher) {
	for _, u := range updates {
		for _, p := range pubs {
			p.Publish(u.slice, u.payload)
		}
	}
}

// fingerprint is the serialized identity used for change detection.
func fingerprint(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// SetRawMarks replaces the raw mark set and race metadata, rebuilding the
// course and the dependent zones when they actually changed.
func (s *Store) SetRawMarks(raws []course.RawMark, meta *course.Metadata) {
	s.mu.Lock()
	s.rawMarks = raws
	s.meta = meta
	s.recomputeCourse()
	s.recomputeZones()
	s.recomputePhase()
	updates, pubs := s.drain()
	s.mu.Unlock()

	deliver(updates, pubs)
}

// SetEnvironment replaces the environment source tiers. Wind feeds leg
// classification, so the course is re-fingerprinted too.
func (s *Store) SetEnvironment(sources env.Sources) {
	s.mu.Lock()
	if sources.BoatDraft == 0 {
		sources.BoatDraft = s.boatDraft
	}
	s.sources = sources
	s.snapshot = env.Extract(sources)
	s.publish(SliceEnvironment, s.snapshot)

	s.recomputeCourse()
	s.recomputeZones()
	s.recomputePhase()
	updates, pubs := s.drain()
	s.mu.Unlock()

	deliver(updates, pubs)
}

// SetProviderReadings replaces the record and metadata tiers from the
// periodic provider refresh, keeping whatever live tier the app posted.
func (s *Store) SetProviderReadings(record, metadata *env.Readings) {
	s.mu.Lock()
	s.sources.Record = record
	s.sources.Metadata = metadata
	if s.sources.BoatDraft == 0 {
		s.sources.BoatDraft = s.boatDraft
	}
	s.snapshot = env.Extract(s.sources)
	s.publish(SliceEnvironment, s.snapshot)

	s.recomputeCourse()
	s.recomputeZones()
	s.recomputePhase()
	updates, pubs := s.drain()
	s.mu.Unlock()

	deliver(updates, pubs)
}

// SetFix records a GPS fix. Phase detection is cheap and runs on every fix;
// course and zones stay fingerprint-gated.
func (s *Store) SetFix(fix *phase.Fix) {
	s.mu.Lock()
	if fix != nil {
		s.fix = fix
	}
	s.recomputePhase()
	updates, pubs := s.drain()
	s.mu.Unlock()

	deliver(updates, pubs)
}

// Reset clears race progress for a newly selected race.
func (s *Store) Reset() {
	s.mu.Lock()
	s.detector.Reset()
	s.fix = nil
	s.phaseCtx = s.detector.Last()
	s.publish(SlicePhase, s.phaseCtx)
	updates, pubs := s.drain()
	s.mu.Unlock()

	deliver(updates, pubs)
}

// Snapshot returns a consistent copy of the derived state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Course:      s.course,
		Environment: s.snapshot,
		Zones:       s.zoneList,
		Phase:       s.phaseCtx,
		Fix:         s.fix,
		Venue:       s.venue,
	}
}

func (s *Store) windDirection() *float64 {
	if s.snapshot.Wind == nil {
		return nil
	}
	d := s.snapshot.Wind.DirectionDeg
	return &d
}

func (s *Store) recomputeCourse() {
	in := struct {
		Raws []course.RawMark `json:"raws"`
		Meta *course.Metadata `json:"meta"`
		Wind *float64         `json:"wind"`
	}{s.rawMarks, s.meta, s.windDirection()}

	fp := fingerprint(in)
	if fp == s.courseFp {
		return
	}
	s.courseFp = fp

	s.course = course.Build(s.rawMarks, s.meta, s.windDirection())
	if s.course == nil {
		log.Debug("course not computable, fewer than 2 usable marks")
	}
	s.publish(SliceCourse, s.course)
}

func (s *Store) recomputeZones() {
	in := zones.Input{
		Wind:    s.snapshot.Wind,
		Current: s.snapshot.Current,
		Tide:    s.snapshot.Tide,
		Depth:   s.snapshot.Depth,
		Course:  s.course,
		Venue:   s.venue,
	}

	fp := fingerprint(in)
	if fp == s.zonesFp {
		return
	}
	s.zonesFp = fp

	s.zoneList = zones.Generate(in)
	s.publish(SliceZones, s.zoneList)
}

func (s *Store) recomputePhase() {
	// the context carries live distance and bearing, publish every evaluation
	s.phaseCtx = s.detector.Evaluate(s.course, s.fix, s.now())
	s.publish(SlicePhase, s.phaseCtx)
}
