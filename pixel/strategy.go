package pixel

import (
	"fmt"
	"strings"
)

// Strategy selects how the chosen channel of a pixel is rewritten.
type Strategy uint8

const (
	DiscardChannel Strategy = iota
	DiscardChannelAndAlpha
	Level
	Invert
)

// Channel values below the threshold level down to 0, the rest up to 255.
const levelThreshold = 127

type operateFunc func(p Pixel, shift uint) Pixel

var strategies = [...]struct {
	name    string
	label   string
	operate operateFunc
}{
	DiscardChannel:         {"discard", "Discard Color Channel", discard},
	DiscardChannelAndAlpha: {"discard-alpha", "Discard Color Channel and Alpha", discardWithAlpha},
	Level:                  {"level", "Level Channel", level},
	Invert:                 {"invert", "Invert Channel", invert},
}

func discard(p Pixel, shift uint) Pixel {
	return p &^ (0xFF << shift)
}

// discardWithAlpha fades the pixel by the share the selected channel has in
// the colour sum before dropping the channel. A pixel made of nothing but the
// selected channel (or of nothing at all) becomes fully transparent.
func discardWithAlpha(p Pixel, shift uint) Pixel {
	a, r, g, b := p.Components()
	s := uint32(p.At(shift))
	sum := uint32(r) + uint32(g) + uint32(b)

	var alpha uint32
	if sum != 0 && sum != s {
		alpha = uint32(a) - uint32(a)*s/sum
	}
	return discard(ARGB(uint8(alpha), r, g, b), shift)
}

func level(p Pixel, shift uint) Pixel {
	if p.At(shift) < levelThreshold {
		return p &^ (0xFF << shift)
	}
	return p | (0xFF << shift)
}

func invert(p Pixel, shift uint) Pixel {
	return p ^ (0xFF << shift)
}

// Strategies returns every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{DiscardChannel, DiscardChannelAndAlpha, Level, Invert}
}

func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, info := range strategies {
		if info.name == name {
			return Strategy(i), nil
		}
	}
	names := make([]string, len(strategies))
	for i, info := range strategies {
		names[i] = info.name
	}
	return 0, fmt.Errorf("unknown strategy %q, should be one of %s", s, strings.Join(names, ", "))
}

func (s Strategy) Valid() bool {
	return int(s) < len(strategies)
}

// Operate applies the strategy to the channel found at the given bit offset.
// Invalid strategies leave the pixel untouched.
func (s Strategy) Operate(p Pixel, shift uint) Pixel {
	if !s.Valid() {
		return p
	}
	return strategies[s].operate(p, shift)
}

// Bind fixes the channel, producing an Operator for a whole run.
func (s Strategy) Bind(c Channel) Operator {
	shift := c.Shift()
	if !s.Valid() {
		return func(p Pixel) Pixel { return p }
	}
	operate := strategies[s].operate
	return func(p Pixel) Pixel {
		return operate(p, shift)
	}
}

// Label is the human readable name of the strategy.
func (s Strategy) Label() string {
	if !s.Valid() {
		return s.String()
	}
	return strategies[s].label
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
	return strategies[s].name
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Operator rewrites a single pixel.
type Operator func(Pixel) Pixel

// Apply rewrites every pixel of the slice in place.
func (op Operator) Apply(pix []Pixel) {
	for i, p := range pix {
		pix[i] = op(p)
	}
}
