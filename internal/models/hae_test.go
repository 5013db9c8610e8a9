package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestParseHAETimeFullDatetime verifies parsing the standard HAE datetime format.
// This is the most common format used by all metric data points.
func TestParseHAETimeFullDatetime(t *testing.T) {
	got, err := ParseHAETime("2024-02-06 14:30:00 -0800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.FixedZone("", -8*3600))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestParseHAETimeDateOnly verifies parsing the date-only format.
func TestParseHAETimeDateOnly(t *testing.T) {
	got, err := ParseHAETime("2024-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != 2 || got.Day() != 6 {
		t.Errorf("got %v, want 2024-02-06", got)
	}
}

// TestParseHAETimeInvalid verifies that an invalid date string returns an error.
// Prevents silent data corruption from malformed timestamps.
func TestParseHAETimeInvalid(t *testing.T) {
	_, err := ParseHAETime("not-a-date")
	if err == nil {
		t.Fatal("expected error for invalid date")
	}
}

// TestHAEPayloadUnmarshal verifies parsing a complete HAE REST API payload.
// Metrics are kept raw and workouts are decoded.
func TestHAEPayloadUnmarshal(t *testing.T) {
	raw := `{
		"data": {
			"metrics": [
				{"name": "heart_rate", "units": "bpm", "data": [{"date": "2024-02-06 14:30:00 -0800", "Avg": 72}]}
			],
			"workouts": [
				{"id": "550e8400-e29b-41d4-a716-446655440000", "name": "Running",
				 "start": "2024-02-06 07:00:00 -0800", "end": "2024-02-06 07:30:00 -0800", "duration": 1800}
			]
		}
	}`
	var p HAEPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(p.Data.Metrics) != 1 {
		t.Fatalf("metrics count = %d, want 1", len(p.Data.Metrics))
	}
	if len(p.Data.Workouts) != 1 {
		t.Fatalf("workouts count = %d, want 1", len(p.Data.Workouts))
	}
	if p.Data.Workouts[0].Start.Hour() != 7 {
		t.Errorf("start hour = %d, want 7", p.Data.Workouts[0].Start.Hour())
	}
}

// TestHAEWorkoutUnmarshal verifies parsing a Version 2 workout with nested quantity objects.
// Unmodelled fields such as heartRateData and route are ignored.
func TestHAEWorkoutUnmarshal(t *testing.T) {
	raw := `{
		"id": "550e8400-e29b-41d4-a716-446655440000",
		"name": "Running",
		"start": "2024-02-06 07:00:00 -0800",
		"end": "2024-02-06 07:30:00 -0800",
		"duration": 1800,
		"activeEnergyBurned": {"qty": 350, "units": "kcal"},
		"distance": {"qty": 3.5, "units": "mi"},
		"heartRateData": [
			{"date": "2024-02-06 07:00:00 -0800", "Min": 120, "Avg": 150, "Max": 175, "units": "bpm"}
		],
		"route": [
			{"latitude": 37.7749, "longitude": -122.4194, "timestamp": "2024-02-06 07:00:00 -0800"}
		]
	}`
	var w HAEWorkout
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if w.ID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("id = %q", w.ID)
	}
	if w.Name != "Running" {
		t.Errorf("name = %q", w.Name)
	}
	if w.Duration != 1800 {
		t.Errorf("duration = %f, want 1800", w.Duration)
	}
	if w.ActiveEnergyBurned == nil || w.ActiveEnergyBurned.Qty != 350 {
		t.Errorf("activeEnergyBurned = %v", w.ActiveEnergyBurned)
	}
	if w.Distance == nil || w.Distance.Qty != 3.5 || w.Distance.Units != "mi" {
		t.Errorf("distance = %v", w.Distance)
	}
}
