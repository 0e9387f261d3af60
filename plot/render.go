package plot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zoobzio/durationz"
)

// emptyNote is drawn instead of lanes when there is nothing to show.
const emptyNote = "no spans recorded"

// Render writes the SVG timeline of trace to w. The same trace, config and
// layout always produce the same bytes. An empty trace renders an image
// carrying a note. Nothing is written if rendering fails.
func Render(w io.Writer, trace *durationz.Trace, cfg Config, layout Layout) error {
	if trace == nil {
		return errors.New("render: nil trace")
	}
	markup := render(trace, cfg, layout)
	if _, err := w.Write(markup); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// WriteFile renders trace to path. The image is written to a temporary file
// next to path and renamed into place, so a failure leaves no partial image.
func WriteFile(path string, trace *durationz.Trace, cfg Config, layout Layout) error {
	if trace == nil {
		return errors.New("render: nil trace")
	}
	markup := render(trace, cfg, layout)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp svg: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(markup); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp svg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp svg: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace svg: %w", err)
	}
	return nil
}

// OnClose returns a session option that plots the captured trace to path
// when the session closes.
func OnClose(path string, cfg Config, layout Layout) durationz.Option {
	return durationz.WithOnClose(func(trace *durationz.Trace) error {
		return WriteFile(path, trace, cfg, layout)
	})
}

// Filter applies cfg.Remove and cfg.MinLength.
func Filter(trace *durationz.Trace, cfg Config) *durationz.Trace {
	if len(cfg.Remove) == 0 && cfg.MinLength <= 0 {
		return trace
	}
	removed := make(map[string]struct{}, len(cfg.Remove))
	for _, name := range cfg.Remove {
		removed[name] = struct{}{}
	}
	return trace.Filter(func(in *durationz.Instance) bool {
		if _, ok := removed[in.Name]; ok {
			return false
		}
		return in.Lifetime() >= cfg.MinLength
	})
}

func render(trace *durationz.Trace, cfg Config, layout Layout) []byte {
	trace = Filter(trace, cfg)
	analysis := Analyze(trace)
	arr := Arrange(trace, cfg, layout)

	totalWidth := layout.PaddingLeft + layout.TextColWidth + layout.ContentColWidth + layout.PaddingRight
	// The timeline header takes one section.
	totalHeight := layout.PaddingTop + layout.BarHeight + layout.SectionPadding + layout.PaddingBottom
	if len(arr.Lanes) == 0 {
		totalHeight += layout.BarHeight + layout.SectionPadding
	}
	for _, lane := range arr.Lanes {
		totalHeight += laneHeight(lane, layout) + layout.SectionPadding
	}

	c := newCanvas()
	c.Start(float64(totalWidth), float64(totalHeight),
		fmt.Sprintf(`viewBox="0 0 %d %d"`, totalWidth, totalHeight),
		attr("font-family", "sans-serif"),
		attr("font-size", "12"),
	)

	headerY := float64(layout.PaddingTop) + float64(layout.BarHeight)/2
	middle := attr("dominant-baseline", "middle")
	c.Text(arr.Scale.X0, headerY, "0s", middle, attr("text-anchor", "start"))
	c.Text(arr.Scale.X0+arr.Scale.Width, headerY, fmt.Sprintf("%.3fs", trace.End.Seconds()), middle, attr("text-anchor", "end"))
	axisY := float64(layout.PaddingTop + layout.BarHeight)
	c.Line(arr.Scale.X0, axisY, arr.Scale.X0+arr.Scale.Width, axisY,
		attr("stroke", "#000000"),
		attr("stroke-opacity", "0.25"),
	)
	if cfg.MinLength > 0 {
		c.Text(float64(layout.PaddingLeft), headerY, fmt.Sprintf("only spans >%gs", cfg.MinLength.Seconds()),
			middle, attr("text-anchor", "start"))
	}

	y := layout.PaddingTop + layout.BarHeight + layout.SectionPadding
	if len(arr.Lanes) == 0 {
		c.Text(float64(layout.PaddingLeft), float64(y)+float64(layout.BarHeight)/2, emptyNote, middle)
	}
	for _, lane := range arr.Lanes {
		c.Text(float64(layout.PaddingLeft), float64(y)+float64(layout.BarHeight)/2, lane.Label, middle)
		for r, row := range lane.Rows {
			rowY := y + r*(layout.BarHeight+layout.RowPadding)
			drawRow(c, trace, analysis, arr.Scale, row, rowY, cfg, layout)
		}
		y += laneHeight(lane, layout) + layout.SectionPadding
	}

	c.End()
	return c.Bytes()
}

func laneHeight(lane Lane, layout Layout) int {
	rows := len(lane.Rows)
	if rows == 0 {
		rows = 1
	}
	return rows*layout.BarHeight + (rows-1)*layout.RowPadding
}

// drawRow draws the open lifetimes of the row's instances, then the active
// intervals on top of them.
func drawRow(c *canvas, trace *durationz.Trace, analysis *Analysis, scale Scale, row Row, y int, cfg Config, layout Layout) {
	top := float64(y)
	height := float64(layout.BarHeight)
	for _, idx := range row.Instances {
		in := &trace.Instances[idx]
		x := scale.X(in.Open)
		c.titledRect("lifetime", x, top, scale.Span(in.Lifetime()), height,
			tooltip(in.Name, in.Fields, in.Open, in.Close, ""),
			attr("fill", rgb(cfg.ColorIdleBackground)),
			attr("fill-opacity", num(opacity(cfg.ColorIdleBackground, 1))),
		)

		if cfg.InlineField && len(in.Fields) == 1 {
			for _, value := range in.Fields {
				c.Text(x, top+height/2, value,
					attr("font-size", "0.7em"),
					attr("dominant-baseline", "middle"),
					attr("text-anchor", "start"),
				)
			}
		}
	}

	for _, idx := range row.Intervals {
		iv := trace.Intervals[idx]
		fill := cfg.ColorMainActive
		where := "main"
		if iv.WorkerPool {
			fill = cfg.ColorWorkerPoolActive
			where = "worker pool"
		}
		count := analysis.Count(idx)
		extra := fmt.Sprintf("active on %s, %d concurrent", where, count)
		c.titledRect("active", scale.X(iv.Start), top, scale.Span(iv.Duration()), height,
			tooltip(iv.Name, iv.Fields, iv.Start, iv.End, extra),
			attr("fill", rgb(fill)),
			attr("fill-opacity", num(opacity(fill, Intensity(count, cfg.Saturation)))),
		)
	}
}

// tooltip lists the name, the fields sorted by key and the exact times.
func tooltip(name string, fields durationz.Fields, start, end time.Duration, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.3fs", name, (end - start).Seconds())

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, fields[k])
	}

	fmt.Fprintf(&b, "\nstart: %s\nend: %s", seconds(start), seconds(end))
	if extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
	}
	return b.String()
}

// seconds formats d with nanosecond precision.
func seconds(d time.Duration) string {
	return fmt.Sprintf("%d.%09ds", d/time.Second, d%time.Second)
}
