// Package status prints single-line status messages to a console,
// overwriting the previous value. Output is throttled to Rate.
package status

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	clearLine = "\x1b[2K\r"
	Rate      = 100 * time.Millisecond
)

var (
	enabled = true
	out     io.Writer = os.Stdout

	lastTime   time.Time
	lastFormat string
	lastArgs   []interface{}
)

// Enable turns status output on or off. Callers disable it when stdout is
// not a terminal.
func Enable(on bool) {
	enabled = on
}

// SetOutput redirects status output; tests use a buffer.
func SetOutput(w io.Writer) {
	out = w
}

func Clear() {
	if !enabled {
		return
	}
	fmt.Fprint(out, clearLine)
	reset(time.Time{})
}

func WillPrint() bool {
	return time.Now().Sub(lastTime) >= Rate
}

func Printf(format string, args ...interface{}) {
	if !enabled {
		return
	}
	now := time.Now()
	if now.Sub(lastTime) < Rate {
		lastFormat, lastArgs = format, args
	} else {
		fmt.Fprintf(out, clearLine+format, args...)
		reset(now)
	}
}

// Done flushes the most recent pending message and ends the line.
func Done() {
	if !enabled {
		return
	}
	if lastArgs != nil {
		fmt.Fprintf(out, clearLine+lastFormat, lastArgs...)
	}
	fmt.Fprintln(out)
	reset(time.Time{})
}

func reset(time time.Time) {
	lastTime = time
	lastFormat, lastArgs = "", nil
}
