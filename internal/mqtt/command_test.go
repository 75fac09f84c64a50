package mqtt

import (
	"errors"
	"testing"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    color.RGB
		clamped bool
	}{
		{name: "compact", payload: `{"led":[10,20,30]}`, want: color.RGB{R: 10, G: 20, B: 30}},
		{name: "spaced", payload: ` { "led" : [ 1 , 2 , 3 ] } `, want: color.RGB{R: 1, G: 2, B: 3}},
		{name: "clamps_high_and_low", payload: `{"led":[300,-5,128]}`, want: color.RGB{R: 255, G: 0, B: 128}, clamped: true},
		{name: "double_encoded", payload: `"{\"led\":[255,0,0]}"`, want: color.RGB{R: 255, G: 0, B: 0}},
		{name: "hex", payload: `{"color":"#ff8000"}`, want: color.RGB{R: 255, G: 128, B: 0}},
		{name: "hex_without_hash", payload: `{"color":"00ff00"}`, want: color.RGB{R: 0, G: 255, B: 0}},
		{name: "extra_fields_ignored", payload: `{"led":[4,5,6],"source":"dashboard"}`, want: color.RGB{R: 4, G: 5, B: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseCommand() error: %v", err)
			}
			if cmd.RGB != tt.want || cmd.Clamped != tt.clamped {
				t.Errorf("ParseCommand() = %+v, want %v clamped=%v", cmd, tt.want, tt.clamped)
			}
		})
	}
}

func TestParseCommandRejects(t *testing.T) {
	payloads := []string{
		``,
		`not json`,
		`{"led":[1,2]}`,
		`{"led":[1,2,3,4]}`,
		`{"led":[1.5,2,3]}`,
		`{"led":["1",2,3]}`,
		`{"led":"1,2,3"}`,
		`{"led":{"r":1,"g":2,"b":3}}`,
		`{"color":12}`,
		`{"color":"#zzzzzz"}`,
		`{"brightness":50}`,
		`[1,2,3]`,
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			if _, err := ParseCommand([]byte(p)); !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidCommand", p, err)
			}
		})
	}
}
