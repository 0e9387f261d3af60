// Package plot renders a durationz trace as an SVG timeline.
//
// Every span name gets a lane, every active interval a rectangle. Main-task
// work and worker-pool work use different colors, and the more instances of
// a name run at the same moment, the more opaque their rectangles get. A
// lighter rectangle beneath shows each instance's whole open lifetime, so the
// gaps where it was suspended stay visible.
//
// The pipeline is Analyze (concurrency per name), Arrange (lanes, rows and
// the time scale) and Render (markup). Render and WriteFile run all three.
package plot

import (
	"image/color"
	"time"
)

// Config holds the visualization options.
//
//nolint:govet // Field order follows the command line flags
type Config struct {
	// MultiLane gives every span instance its own lane instead of one per name.
	MultiLane bool
	// InlineField draws the value of a single-field span inside its box.
	// The text is not clipped and can overlap its neighbours.
	InlineField bool
	// MinLength removes spans whose lifetime is shorter.
	MinLength time.Duration
	// Remove drops spans with these names.
	Remove []string
	// ColorMainActive fills active regions on the main task.
	ColorMainActive color.NRGBA
	// ColorWorkerPoolActive fills active regions of offloaded work.
	ColorWorkerPoolActive color.NRGBA
	// ColorIdleBackground fills the open lifetime beneath the active regions.
	ColorIdleBackground color.NRGBA
	// Saturation is the concurrency at which active regions stop darkening.
	Saturation int
}

// DefaultConfig returns the default options. The palette is colorblind
// friendly: semi-transparent orange, green and blue.
func DefaultConfig() Config {
	return Config{
		ColorMainActive:       color.NRGBA{R: 0xE6, G: 0x9F, B: 0x00, A: 0x88},
		ColorWorkerPoolActive: color.NRGBA{R: 0x00, G: 0x9E, B: 0x73, A: 0x88},
		ColorIdleBackground:   color.NRGBA{R: 0x56, G: 0xB4, B: 0xE9, A: 0x88},
		Saturation:            4,
	}
}

// Layout holds the dimensions of each part of the plot, in pixels.
type Layout struct {
	// PaddingTop for the entire svg.
	PaddingTop int
	// PaddingBottom for the entire svg.
	PaddingBottom int
	// PaddingLeft for the entire svg.
	PaddingLeft int
	// PaddingRight for the entire svg.
	PaddingRight int
	// TextColWidth is the width of the label column on the left.
	TextColWidth int
	// ContentColWidth is the width of the bar section.
	ContentColWidth int
	// BarHeight is the height of one row.
	BarHeight int
	// RowPadding separates the rows of one lane.
	RowPadding int
	// SectionPadding separates lanes.
	SectionPadding int
}

// DefaultLayout returns the default dimensions.
func DefaultLayout() Layout {
	return Layout{
		PaddingTop:      5,
		PaddingBottom:   5,
		PaddingLeft:     5,
		PaddingRight:    5,
		TextColWidth:    250,
		ContentColWidth: 850,
		BarHeight:       20,
		RowPadding:      1,
		SectionPadding:  10,
	}
}
