package provider

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/a-bouts/tactics-server/env"
)

const tidePage = `
<html><body><table>
<tr class="tide-event" data-time="2024-06-01T06:00:00Z"><td class="height">1.0 m</td></tr>
<tr class="tide-event" data-time="2024-06-01T12:00:00Z"><td class="height">4.0 m</td></tr>
<tr class="tide-event" data-time="2024-06-01T18:00:00Z"><td class="height">0.8 m</td></tr>
<tr class="tide-event"><td class="height">9.9 m</td></tr>
<tr class="tide-event" data-time="2024-06-01T23:00:00Z"><td class="height">n/a</td></tr>
</table></body></html>`

func tideDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tidePage))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseTideEventsDropsMalformedRows(t *testing.T) {
	events := parseTideEvents(tideDoc(t))
	if len(events) != 3 {
		t.Fatalf("parseTideEvents = %d events; want 3 (malformed dropped)", len(events))
	}
	if events[1].HeightM != 4.0 {
		t.Errorf("high water height = %f; want 4.0", events[1].HeightM)
	}
}

func TestSnapshotFromEventsRising(t *testing.T) {
	events := parseTideEvents(tideDoc(t))
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	snap := snapshotFromEvents(events, now)
	if snap.Trend != env.TideRising {
		t.Errorf("trend at 09:00 = %s; want rising", snap.Trend)
	}
	if math.Abs(snap.HeightM-2.5) > 1e-9 {
		t.Errorf("height at 09:00 = %f; want 2.5 (midway 1.0 to 4.0)", snap.HeightM)
	}
	if math.Abs(snap.RateMHr-0.5) > 1e-9 {
		t.Errorf("rate = %f; want 0.5 m/hr", snap.RateMHr)
	}
	if math.Abs(snap.RangeM-3.2) > 1e-9 {
		t.Errorf("range = %f; want 3.2", snap.RangeM)
	}
}

func TestSnapshotFromEventsFalling(t *testing.T) {
	events := parseTideEvents(tideDoc(t))
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	snap := snapshotFromEvents(events, now)
	if snap.Trend != env.TideFalling {
		t.Errorf("trend at 15:00 = %s; want falling", snap.Trend)
	}
}
