package pixel

import (
	"fmt"
	"strings"
)

type Channel uint8

const (
	Red Channel = iota
	Green
	Blue
)

const (
	redShift   = 16
	greenShift = 8
	blueShift  = 0
)

var channels = [...]struct {
	name  string
	shift uint
}{
	Red:   {"red", redShift},
	Green: {"green", greenShift},
	Blue:  {"blue", blueShift},
}

// Channels returns every colour channel in red, green, blue order.
func Channels() []Channel {
	return []Channel{Red, Green, Blue}
}

func ParseChannel(s string) (Channel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, info := range channels {
		if info.name == name {
			return Channel(c), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q, should be red, green or blue", s)
}

func (c Channel) Valid() bool {
	return int(c) < len(channels)
}

// Shift is the bit offset of the channel inside a Pixel.
func (c Channel) Shift() uint {
	if !c.Valid() {
		return 0
	}
	return channels[c].shift
}

// Mask selects the 8 bits of the channel inside a Pixel.
func (c Channel) Mask() Pixel {
	return 0xFF << c.Shift()
}

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
	return channels[c].name
}

func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Channel) UnmarshalText(text []byte) error {
	parsed, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
