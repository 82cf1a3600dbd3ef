package course

import (
	"time"

	"github.com/a-bouts/tactics-server/geo"
)

type MarkType string

const (
	MarkStartPin  MarkType = "start-pin"
	MarkStartBoat MarkType = "start-boat"
	MarkWindward  MarkType = "windward"
	MarkLeeward   MarkType = "leeward"
	MarkOffset    MarkType = "offset"
	MarkFinish    MarkType = "finish"
)

type Rounding string

const (
	RoundingPort      Rounding = "port"
	RoundingStarboard Rounding = "starboard"
	RoundingNone      Rounding = ""
)

type Mark struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position geo.LatLon `json:"position"`
	Type     MarkType   `json:"type"`
	Rounding Rounding   `json:"rounding,omitempty"`
}

// StartLine is derived from metadata or from the start-pin/start-boat marks.
// Heading is the bearing from the pin end to the boat end.
type StartLine struct {
	Port      geo.LatLon `json:"port"`
	Starboard geo.LatLon `json:"starboard"`
	Center    geo.LatLon `json:"center"`
	Heading   float64    `json:"heading"`
	Length    float64    `json:"length"`
}

type LegType string

const (
	LegUpwind   LegType = "upwind"
	LegDownwind LegType = "downwind"
	LegReach    LegType = "reach"
)

type Leg struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	From             string  `json:"from"`
	To               string  `json:"to"`
	Type             LegType `json:"type"`
	DistanceNm       float64 `json:"distanceNm"`
	Heading          float64 `json:"heading"`
	EstimatedTimeSec float64 `json:"estimatedTime,omitempty"`
}

type Course struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Marks           []Mark     `json:"marks"`
	Legs            []Leg      `json:"legs"`
	StartLine       *StartLine `json:"startLine,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	TotalDistanceNm float64    `json:"totalDistanceNm"`
	Laps            int        `json:"laps,omitempty"`
}

// FinishMark returns the mark typed finish, or nil when the course has none.
func (c *Course) FinishMark() *Mark {
	for i := range c.Marks {
		if c.Marks[i].Type == MarkFinish {
			return &c.Marks[i]
		}
	}
	return nil
}

func (c *Course) MarkByID(id string) *Mark {
	for i := range c.Marks {
		if c.Marks[i].ID == id {
			return &c.Marks[i]
		}
	}
	return nil
}

func (c *Course) LegByID(id string) *Leg {
	for i := range c.Legs {
		if c.Legs[i].ID == id {
			return &c.Legs[i]
		}
	}
	return nil
}
