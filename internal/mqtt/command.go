package mqtt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/icza/gox/imagex/colorx"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

var ErrInvalidCommand = errors.New("invalid command")

// Command is an inbound request to show a color.
type Command struct {
	RGB color.RGB
	// Clamped is set when any requested channel was outside 0-255.
	Clamped bool
}

func (c *Command) String() string {
	return fmt.Sprintf("led:[%d,%d,%d]", c.RGB.R, c.RGB.G, c.RGB.B)
}

// CommandHandler applies colors received as commands.
type CommandHandler interface {
	SetColor(ctx context.Context, c color.RGB) error
}

// ParseCommand accepts {"led":[r,g,b]} with integer channels, or
// {"color":"#rrggbb"}. The whole object may also arrive JSON-encoded inside a
// string. Channels are clamped to 0-255.
func ParseCommand(payload []byte) (*Command, error) {
	doc, err := gabs.ParseJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, err)
	}

	if s, ok := doc.Data().(string); ok {
		if doc, err = gabs.ParseJSON([]byte(s)); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, err)
		}
	}

	if _, ok := doc.Data().(map[string]interface{}); !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidCommand)
	}

	if doc.Exists("led") {
		return parseLED(doc.Path("led"))
	}
	if doc.Exists("color") {
		return parseHex(doc.Path("color"))
	}
	return nil, fmt.Errorf("%w: expected {\"led\":[r,g,b]}", ErrInvalidCommand)
}

func parseLED(led *gabs.Container) (*Command, error) {
	values, ok := led.Data().([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("%w: led must be an array of three integers", ErrInvalidCommand)
	}

	var ch [3]int
	for i := range values {
		f, ok := led.Index(i).Data().(float64)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: led[%d] is not an integer", ErrInvalidCommand, i)
		}
		if f > math.MaxInt32 {
			f = math.MaxInt32
		} else if f < math.MinInt32 {
			f = math.MinInt32
		}
		ch[i] = int(f)
	}

	cmd := &Command{RGB: color.RGB{
		R: color.Clamp8(ch[0]),
		G: color.Clamp8(ch[1]),
		B: color.Clamp8(ch[2]),
	}}
	for _, v := range ch {
		if v < 0 || v > 255 {
			cmd.Clamped = true
		}
	}
	return cmd, nil
}

func parseHex(c *gabs.Container) (*Command, error) {
	s, ok := c.Data().(string)
	if !ok {
		return nil, fmt.Errorf("%w: color must be a string", ErrInvalidCommand)
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	rgba, err := colorx.ParseHexColor(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, err)
	}
	return &Command{RGB: color.RGB{R: rgba.R, G: rgba.G, B: rgba.B}}, nil
}
