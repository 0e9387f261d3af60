package plot

import (
	"bytes"
	"strconv"

	svg "github.com/ajstarks/svgo/float"
)

// decimals is the precision of every coordinate and opacity written.
const decimals = 3

// canvas is an svgo document built in memory. Nothing reaches the
// destination until the whole document has been built.
type canvas struct {
	*svg.SVG
	buf bytes.Buffer
}

func newCanvas() *canvas {
	c := &canvas{}
	c.SVG = svg.New(&c.buf)
	c.Decimals = decimals
	return c
}

// attr formats a name="value" pair, which svgo writes as an attribute.
// Values are never user text.
func attr(name, value string) string {
	return name + `="` + value + `"`
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// titledRect draws a rectangle grouped with the hover text shown for it.
func (c *canvas) titledRect(class string, x, y, w, h float64, title string, style ...string) {
	c.Group(attr("class", class))
	c.Rect(x, y, w, h, style...)
	c.Title(title)
	c.Gend()
}

func (c *canvas) Bytes() []byte {
	return c.buf.Bytes()
}
