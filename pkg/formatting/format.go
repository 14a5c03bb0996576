// Package formatting renders counters, byte volumes and durations for the
// console summaries
package formatting

import (
	"fmt"
	"strconv"
	"time"
)

// Countable is a uint64 that can be printed in a human readable format
type Countable uint64

// String prints the Countable in a human readable format
func (c Countable) String() string {
	return Count(uint64(c))
}

// Sizeable is a number of bytes that can be printed in a human readable format
type Sizeable uint64

// String prints the Sizeable in a human readable format
func (s Sizeable) String() string {
	return Size(uint64(s))
}

var (
	countUnits = []string{"", "k", "M", "G", "T", "P", "E"}
	sizeUnits  = []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
)

// Count takes a number and prints it in a human readable format,
// e.g. 999 -> 999, 1500 -> 1.50 k, 1000000 -> 1.00 M
func Count(val uint64) string {
	if val < 1000 {
		return strconv.FormatUint(val, 10)
	}
	valF, unit := scale(val, 1000)
	return fmt.Sprintf("%.2f %s", valF, countUnits[unit])
}

// Size prints out size in a human-readable format (e.g. 10.00 MB)
func Size(size uint64) string {
	if size < 1024 {
		return strconv.FormatUint(size, 10) + " " + sizeUnits[0]
	}
	sizeF, unit := scale(size, 1024)
	return fmt.Sprintf("%.2f %s", sizeF, sizeUnits[unit])
}

func scale(val uint64, base float64) (float64, int) {
	valF := float64(val)
	unit := 0
	for valF >= base && unit < len(countUnits)-1 {
		valF /= base
		unit++
	}
	return valF, unit
}

// Duration prints out d in a human-readable duration format, rounded to the
// precision relevant for processing times
func Duration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}

// Ratio prints a value in [0, 1] as percentage
func Ratio(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
