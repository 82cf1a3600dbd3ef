package marks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/a-bouts/tactics-server/course"
)

// DB reads raw mark rows from the club's Postgres instance. The schema
// belongs to the persistence layer; this adapter only maps rows onto
// RawMark and tolerates nulls everywhere.
type DB struct {
	db *sqlx.DB
}

func OpenDB(dsn string) (*DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

type markRow struct {
	ID       string          `db:"id"`
	Name     string          `db:"name"`
	Type     sql.NullString  `db:"mark_type"`
	Rounding sql.NullString  `db:"rounding"`
	Lat      sql.NullFloat64 `db:"lat"`
	Lon      sql.NullFloat64 `db:"lon"`
}

type raceRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	StartTime sql.NullTime    `db:"start_time"`
	Laps      sql.NullInt64   `db:"laps"`
	PinLat    sql.NullFloat64 `db:"pin_lat"`
	PinLon    sql.NullFloat64 `db:"pin_lon"`
	BoatLat   sql.NullFloat64 `db:"boat_lat"`
	BoatLon   sql.NullFloat64 `db:"boat_lon"`
}

// CourseDocument loads the marks and metadata for one race.
func (d *DB) CourseDocument(ctx context.Context, raceID string) (*Document, error) {
	var race raceRow
	err := d.db.GetContext(ctx, &race,
		`SELECT id, name, start_time, laps, pin_lat, pin_lon, boat_lat, boat_lon
		   FROM races WHERE id = $1`, raceID)
	if err != nil {
		return nil, fmt.Errorf("load race %s: %w", raceID, err)
	}

	var rows []markRow
	err = d.db.SelectContext(ctx, &rows,
		`SELECT id, name, mark_type, rounding, lat, lon
		   FROM race_marks WHERE race_id = $1 ORDER BY seq`, raceID)
	if err != nil {
		return nil, fmt.Errorf("load marks for race %s: %w", raceID, err)
	}

	doc := &Document{Metadata: race.metadata()}
	for _, row := range rows {
		doc.Marks = append(doc.Marks, row.rawMark())
	}
	return doc, nil
}

func (r markRow) rawMark() course.RawMark {
	raw := course.RawMark{
		ID:       r.ID,
		Name:     r.Name,
		Type:     r.Type.String,
		Rounding: r.Rounding.String,
	}
	if r.Lat.Valid && r.Lon.Valid {
		lat, lon := r.Lat.Float64, r.Lon.Float64
		raw.Lat = &lat
		raw.Lon = &lon
	}
	return raw
}

func (r raceRow) metadata() *course.Metadata {
	meta := &course.Metadata{
		ID:   r.ID,
		Name: r.Name,
	}
	if r.StartTime.Valid {
		t := r.StartTime.Time.UTC()
		meta.StartTime = &t
	}
	if r.Laps.Valid {
		meta.Laps = int(r.Laps.Int64)
	}
	if r.PinLat.Valid && r.PinLon.Valid && r.BoatLat.Valid && r.BoatLon.Valid {
		pinLat, pinLon := r.PinLat.Float64, r.PinLon.Float64
		boatLat, boatLon := r.BoatLat.Float64, r.BoatLon.Float64
		meta.StartLine = &course.StartLineMeta{
			Port:      &course.RawPoint{Lat: &pinLat, Lon: &pinLon},
			Starboard: &course.RawPoint{Lat: &boatLat, Lon: &boatLon},
		}
	}
	return meta
}
