package main

import (
	"image/color"
	"strings"

	"github.com/zoobzio/durationz/plot"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// colorFlag parses a color into c.
type colorFlag struct {
	c *color.NRGBA
}

func (f colorFlag) String() string {
	if f.c == nil {
		return ""
	}
	return plot.FormatColor(*f.c)
}

func (f colorFlag) Set(value string) error {
	parsed, err := plot.ParseColor(value)
	if err != nil {
		return err
	}
	*f.c = parsed
	return nil
}
