package types

import (
	"fmt"
	"log/slog"
	"strings"
)

// RangeError stores an error where a value is not within a predefined range. It is the caller's responsibility
// to make sure that Val is actually conflicting with Min/Max. Otherwise, there's no point to instantiate the
// error in the first place
type RangeError struct {
	Val string       `json:"val,omitempty"` // Val: value that doesn't fit into the range
	Min *boundsError `json:"min"`           // Min: lower bound
	Max *boundsError `json:"max"`           // Max: upper bound
}

// MinBoundsError stores an error communicating that a value is below a permitted value
type MinBoundsError struct {
	Val string       `json:"val,omitempty"` // Val: value that is below the lower bounds
	Min *boundsError `json:"min"`           // Min: lower bound
}

// UnsupportedError stores an error communicating that a value is not included in a set of values
type UnsupportedError struct {
	Val   string   `json:"val"`   // Val: the value not part of Valid. Example: biscuits
	Valid []string `json:"valid"` // Valid: the permitted values. Example: ["csv", "jsonl"]
}

type boundsError struct {
	Includes bool   `json:"includes"` // Includes: indicates whether the value is included in the comparison or not. Example: false
	Val      string `json:"val"`      // Val: the bound. Example: 0
}

// NewRangeError instantiates a new RangeError
func NewRangeError(val, min string, includeMin bool, max string, includeMax bool) *RangeError {
	return &RangeError{
		Val: val,
		Min: newBoundsError(min, includeMin),
		Max: newBoundsError(max, includeMax),
	}
}

func (err *RangeError) Error() string {
	var strs = []string{"("}
	if err.Min.Includes {
		strs[0] = "["
	}
	strs = append(strs, err.Min.Val, ", ", err.Max.Val)
	if err.Max.Includes {
		strs = append(strs, "]")
	} else {
		strs = append(strs, ")")
	}
	return fmt.Sprintf("range constraint not met: %v not in %s", err.Val, strings.Join(strs, ""))
}

// NewMinBoundsError instantiates a new MinBoundsError
func NewMinBoundsError(val, min string, inclusive bool) *MinBoundsError {
	return &MinBoundsError{
		Val: val,
		Min: newBoundsError(min, inclusive),
	}
}

func (err *MinBoundsError) Error() string {
	comp := ">"
	if err.Min.Includes {
		comp += "="
	}
	return fmt.Sprintf("min constraint not met: %s must be %s %s", err.Val, comp, err.Min.Val)
}

func newBoundsError(val string, inclusive bool) *boundsError {
	return &boundsError{Val: val, Includes: inclusive}
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf("'%s' is not in {%s}", err.Val, strings.Join(err.Valid, ", "))
}

// LogValue implements the slog.LogValuer interface
func (err *UnsupportedError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("val", err.Val),
		slog.Any("valid", err.Valid),
	)
}

// NewUnsupportedError instantiates a new UnsupportedError
func NewUnsupportedError(val string, valid []string) *UnsupportedError {
	return &UnsupportedError{
		Val:   val,
		Valid: valid,
	}
}
