package gcode

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Line renders one instruction as a G-code line without a trailing newline.
func Line(in Instruction) string {
	switch in.Kind {
	case Travel:
		return fmt.Sprintf("G0 X%.3f Y%.3f F%d", in.X, in.Y, feed(in.Feed))
	case Print:
		return fmt.Sprintf("G1 X%.3f Y%.3f E%.5f F%d", in.X, in.Y, in.E, feed(in.Feed))
	case Comment:
		return "; " + in.Text
	default:
		return in.Text
	}
}

func feed(f float64) int {
	return int(math.Round(f))
}

// Format renders instructions one per line, newline-separated, with no
// trailing newline.
func Format(list []Instruction) string {
	var sb strings.Builder
	for i, in := range list {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(Line(in))
	}
	return sb.String()
}

// WriteTo writes every instruction followed by a newline.
func WriteTo(w io.Writer, list []Instruction) (int64, error) {
	var n int64
	for _, in := range list {
		m, err := io.WriteString(w, Line(in)+"\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
