package plot

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

// ParseColor reads "#RRGGBB" or "#RRGGBBAA". The leading '#' is optional and
// a missing alpha means opaque.
func ParseColor(s string) (color.NRGBA, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(digits) != 6 && len(digits) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	c := color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xFF}
	if len(raw) == 4 {
		c.A = raw[3]
	}
	return c, nil
}

// FormatColor writes c as "#RRGGBBAA".
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// rgb writes the color without alpha, for fill attributes.
func rgb(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// opacity is the alpha of c scaled by intensity, in [0,1].
func opacity(c color.NRGBA, intensity float64) float64 {
	return float64(c.A) / 0xFF * intensity
}
