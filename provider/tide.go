package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/a-bouts/tactics-server/env"
)

// tideEvent is one high/low water row of a published tide table.
type tideEvent struct {
	At      time.Time
	HeightM float64
}

// FetchTideTable scrapes a harbour tide-table page and derives the tide
// snapshot for now: interpolated height, trend, rate and daily range.
// Upstream being down or serving garbage yields an error, never a
// fabricated snapshot.
func FetchTideTable(ctx context.Context, client *http.Client, url string, now time.Time) (*env.TideSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tide table %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tide table %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse tide table %s: %w", url, err)
	}

	events := parseTideEvents(doc)
	if len(events) < 2 {
		return nil, fmt.Errorf("tide table %s: %d usable events, need 2", url, len(events))
	}

	return snapshotFromEvents(events, now), nil
}

// parseTideEvents expects rows of the form
// <tr class="tide-event" data-time="RFC3339"><td class="height">3.4</td></tr>.
// Malformed rows are dropped, not fatal.
func parseTideEvents(doc *goquery.Document) []tideEvent {
	var events []tideEvent
	doc.Find("tr.tide-event").Each(func(i int, row *goquery.Selection) {
		stamp, ok := row.Attr("data-time")
		if !ok {
			return
		}
		at, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return
		}
		text := strings.TrimSpace(row.Find("td.height").First().Text())
		text = strings.TrimSuffix(text, "m")
		height, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return
		}
		events = append(events, tideEvent{At: at, HeightM: height})
	})
	return events
}

func snapshotFromEvents(events []tideEvent, now time.Time) *env.TideSnapshot {
	// surrounding events; clamp to the table edges
	prev := events[0]
	next := events[len(events)-1]
	for i := 0; i+1 < len(events); i++ {
		if !events[i].At.After(now) && events[i+1].At.After(now) {
			prev = events[i]
			next = events[i+1]
			break
		}
	}

	span := next.At.Sub(prev.At).Hours()
	var height, rate float64
	if span > 0 {
		frac := now.Sub(prev.At).Hours() / span
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		height = prev.HeightM + (next.HeightM-prev.HeightM)*frac
		rate = (next.HeightM - prev.HeightM) / span
	} else {
		height = prev.HeightM
	}

	trend := env.TideSlack
	if rate > 0.05 {
		trend = env.TideRising
	} else if rate < -0.05 {
		trend = env.TideFalling
	}

	min, max := events[0].HeightM, events[0].HeightM
	for _, e := range events[1:] {
		if e.HeightM < min {
			min = e.HeightM
		}
		if e.HeightM > max {
			max = e.HeightM
		}
	}

	return &env.TideSnapshot{
		HeightM:   height,
		Trend:     trend,
		RateMHr:   rate,
		RangeM:    max - min,
		FetchedAt: now,
	}
}
