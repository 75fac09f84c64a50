// Package store keeps the telemetry history received by the collector.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

// Store wraps the SQLite database connection
type Store struct {
	db *sql.DB
}

// Open opens the database and initializes the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lux_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			lux REAL NOT NULL,
			raw TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_lux_ts ON lux_readings(ts);

		CREATE TABLE IF NOT EXISTS color_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			r INTEGER NOT NULL,
			g INTEGER NOT NULL,
			b INTEGER NOT NULL,
			h REAL NOT NULL,
			s REAL NOT NULL,
			v REAL NOT NULL,
			name TEXT NOT NULL,
			raw TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_color_ts ON color_readings(ts);

		CREATE TABLE IF NOT EXISTS led_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			r INTEGER NOT NULL,
			g INTEGER NOT NULL,
			b INTEGER NOT NULL,
			raw TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_led_ts ON led_events(ts);
	`)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Range selects records with Start <= ts <= End, newest first.
type Range struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

type LuxRecord struct {
	ID  int64           `json:"id"`
	TS  time.Time       `json:"ts"`
	Lux float64         `json:"lux"`
	Raw json.RawMessage `json:"raw,omitempty"`
}

type ColorRecord struct {
	ID   int64           `json:"id"`
	TS   time.Time       `json:"ts"`
	RGB  [3]uint8        `json:"rgb"`
	HSV  color.HSV       `json:"hsv"`
	Name string          `json:"name"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

type LEDRecord struct {
	ID  int64           `json:"id"`
	TS  time.Time       `json:"ts"`
	RGB [3]uint8        `json:"rgb"`
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Record stores one received event. ts is the receive time; raw is the
// payload as it arrived.
func (s *Store) Record(ev telemetry.Event, ts time.Time, raw []byte) error {
	at := ts.UTC().UnixMilli()

	var err error
	switch e := ev.(type) {
	case telemetry.LuxEvent:
		_, err = s.db.Exec(`INSERT INTO lux_readings (ts, lux, raw) VALUES (?, ?, ?)`,
			at, e.Lux, string(raw))
	case telemetry.ColorEvent:
		_, err = s.db.Exec(`INSERT INTO color_readings (ts, r, g, b, h, s, v, name, raw) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			at, e.RGB[0], e.RGB[1], e.RGB[2], e.HSV.H, e.HSV.S, e.HSV.V, string(e.Label), string(raw))
	case telemetry.ActuatorEvent:
		_, err = s.db.Exec(`INSERT INTO led_events (ts, r, g, b, raw) VALUES (?, ?, ?, ?, ?)`,
			at, e.RGB[0], e.RGB[1], e.RGB[2], string(raw))
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", ev.Kind(), err)
	}
	return nil
}

func (s *Store) ListLux(r Range) ([]LuxRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, lux, raw FROM lux_readings
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts DESC, id DESC
		LIMIT ? OFFSET ?
	`, r.Start.UnixMilli(), r.End.UnixMilli(), r.Limit, r.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LuxRecord{}
	for rows.Next() {
		var rec LuxRecord
		var ts int64
		var raw sql.NullString
		if err := rows.Scan(&rec.ID, &ts, &rec.Lux, &raw); err != nil {
			return nil, err
		}
		rec.TS = time.UnixMilli(ts).UTC()
		rec.Raw = rawJSON(raw)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) ListColor(r Range) ([]ColorRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, r, g, b, h, s, v, name, raw FROM color_readings
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts DESC, id DESC
		LIMIT ? OFFSET ?
	`, r.Start.UnixMilli(), r.End.UnixMilli(), r.Limit, r.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ColorRecord{}
	for rows.Next() {
		rec, err := scanColor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) ListLED(r Range) ([]LEDRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, r, g, b, raw FROM led_events
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts DESC, id DESC
		LIMIT ? OFFSET ?
	`, r.Start.UnixMilli(), r.End.UnixMilli(), r.Limit, r.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LEDRecord{}
	for rows.Next() {
		rec, err := scanLED(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest holds the newest record of each kind; missing kinds are nil.
type Latest struct {
	Lux   *LuxRecord   `json:"lux"`
	Color *ColorRecord `json:"color"`
	LED   *LEDRecord   `json:"led"`
}

func (s *Store) Latest() (*Latest, error) {
	all := Range{Start: time.UnixMilli(0), End: time.UnixMilli(1<<62 - 1), Limit: 1}
	var latest Latest

	lux, err := s.ListLux(all)
	if err != nil {
		return nil, err
	}
	if len(lux) > 0 {
		latest.Lux = &lux[0]
	}

	colors, err := s.ListColor(all)
	if err != nil {
		return nil, err
	}
	if len(colors) > 0 {
		latest.Color = &colors[0]
	}

	leds, err := s.ListLED(all)
	if err != nil {
		return nil, err
	}
	if len(leds) > 0 {
		latest.LED = &leds[0]
	}

	return &latest, nil
}

// DeleteOlderThan removes records older than the retention period.
func (s *Store) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	var total int64
	for _, table := range []string{"lux_readings", "color_readings", "led_events"} {
		res, err := s.db.Exec(`DELETE FROM `+table+` WHERE ts < ?`, cutoff)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func scanColor(rows *sql.Rows) (ColorRecord, error) {
	var rec ColorRecord
	var ts int64
	var raw sql.NullString
	err := rows.Scan(&rec.ID, &ts, &rec.RGB[0], &rec.RGB[1], &rec.RGB[2],
		&rec.HSV.H, &rec.HSV.S, &rec.HSV.V, &rec.Name, &raw)
	rec.TS = time.UnixMilli(ts).UTC()
	rec.Raw = rawJSON(raw)
	return rec, err
}

func scanLED(rows *sql.Rows) (LEDRecord, error) {
	var rec LEDRecord
	var ts int64
	var raw sql.NullString
	err := rows.Scan(&rec.ID, &ts, &rec.RGB[0], &rec.RGB[1], &rec.RGB[2], &raw)
	rec.TS = time.UnixMilli(ts).UTC()
	rec.Raw = rawJSON(raw)
	return rec, err
}

func rawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" || !json.Valid([]byte(s.String)) {
		return nil
	}
	return json.RawMessage(s.String)
}
