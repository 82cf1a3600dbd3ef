package env

// Readings is one tier of environment data. Tiers come from the live
// enriched feed, the race record, or the race metadata, and any of them may
// be partial or absent.
type Readings struct {
	Wind    *WindSnapshot    `json:"wind,omitempty"`
	Current *CurrentSnapshot `json:"current,omitempty"`
	Tide    *TideSnapshot    `json:"tide,omitempty"`
	Depth   *DepthSnapshot   `json:"depth,omitempty"`
}

// Sources are the candidate tiers in precedence order:
// live enriched > race record > race metadata.
type Sources struct {
	Live      *Readings
	Record    *Readings
	Metadata  *Readings
	BoatDraft float64
}

func (s Sources) tiers() []*Readings {
	return []*Readings{s.Live, s.Record, s.Metadata}
}

// Extract merges the tiers into one canonical snapshot, per concern, first
// non-nil wins. It never synthesizes a reading: a concern absent from every
// tier stays nil.
func Extract(s Sources) Snapshot {
	var out Snapshot

	for _, tier := range s.tiers() {
		if tier == nil {
			continue
		}
		if out.Wind == nil && tier.Wind != nil {
			w := *tier.Wind
			out.Wind = &w
		}
		if out.Current == nil && tier.Current != nil {
			c := *tier.Current
			out.Current = &c
		}
		if out.Tide == nil && tier.Tide != nil {
			t := *tier.Tide
			out.Tide = &t
		}
		if out.Depth == nil && tier.Depth != nil {
			d := *tier.Depth
			d.ClearanceM = d.CurrentM - s.BoatDraft
			out.Depth = &d
		}
	}

	return out
}
