package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T, s *Store, ev telemetry.Event, at time.Time) {
	t.Helper()
	raw, _ := json.Marshal(ev)
	if err := s.Record(ev, at, raw); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestListLuxNewestFirst(t *testing.T) {
	s := openTest(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		record(t, s, telemetry.NewLuxEvent(float64(i*10), at), at)
	}

	got, err := s.ListLux(Range{Start: base, End: base.Add(time.Hour), Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []float64{40, 30, 20} {
		if got[i].Lux != want {
			t.Errorf("got[%d].Lux = %v, want %v", i, got[i].Lux, want)
		}
	}
	if !got[0].TS.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("TS = %v", got[0].TS)
	}
	if len(got[0].Raw) == 0 {
		t.Error("raw payload not kept")
	}

	got, err = s.ListLux(Range{Start: base, End: base.Add(time.Hour), Limit: 10, Offset: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Lux != 0 {
		t.Errorf("offset page = %+v", got)
	}

	got, err = s.ListLux(Range{Start: base.Add(90 * time.Second), End: base.Add(150 * time.Second), Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Lux != 20 {
		t.Errorf("window = %+v", got)
	}
}

func TestColorAndLED(t *testing.T) {
	s := openTest(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := telemetry.Reading{
		Mapped: color.RGB{R: 250, G: 10, B: 10},
		HSV:    color.HSV{H: 0, S: 0.96, V: 0.98},
		Label:  color.Red,
	}
	record(t, s, telemetry.NewColorEvent(r, at), at)
	record(t, s, telemetry.NewActuatorEvent(color.RGB{R: 30, G: 1, B: 1}, at), at)

	all := Range{Start: at.Add(-time.Hour), End: at.Add(time.Hour), Limit: 10}
	colors, err := s.ListColor(all)
	if err != nil {
		t.Fatal(err)
	}
	if len(colors) != 1 {
		t.Fatalf("colors = %+v", colors)
	}
	if c := colors[0]; c.RGB != [3]uint8{250, 10, 10} || c.Name != "red" || c.HSV.S != 0.96 {
		t.Errorf("color = %+v", c)
	}

	leds, err := s.ListLED(all)
	if err != nil {
		t.Fatal(err)
	}
	if len(leds) != 1 || leds[0].RGB != [3]uint8{30, 1, 1} {
		t.Errorf("leds = %+v", leds)
	}
}

func TestLatest(t *testing.T) {
	s := openTest(t)

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Lux != nil || latest.Color != nil || latest.LED != nil {
		t.Errorf("empty store latest = %+v", latest)
	}

	at := time.Now()
	record(t, s, telemetry.NewLuxEvent(5, at.Add(-time.Second)), at.Add(-time.Second))
	record(t, s, telemetry.NewLuxEvent(7, at), at)

	latest, err = s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Lux == nil || latest.Lux.Lux != 7 {
		t.Errorf("latest lux = %+v", latest.Lux)
	}
	if latest.Color != nil {
		t.Errorf("latest color = %+v", latest.Color)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := openTest(t)
	now := time.Now()
	record(t, s, telemetry.NewLuxEvent(1, now.Add(-48*time.Hour)), now.Add(-48*time.Hour))
	record(t, s, telemetry.NewActuatorEvent(color.RGB{}, now.Add(-48*time.Hour)), now.Add(-48*time.Hour))
	record(t, s, telemetry.NewLuxEvent(2, now), now)

	n, err := s.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	latest, _ := s.Latest()
	if latest.Lux == nil || latest.Lux.Lux != 2 || latest.LED != nil {
		t.Errorf("after retention: %+v", latest)
	}
}

func TestRecordUnsupported(t *testing.T) {
	s := openTest(t)
	if err := s.Record(nil, time.Now(), nil); err == nil {
		t.Error("nil event accepted")
	}
}
