// Package types holds small types shared across goExtract packages
package types

// Status denotes a generic execution status for display
type Status string

// Definition of some common status results
const (
	StatusError Status = "error"
	StatusEmpty Status = "empty"
	StatusOK    Status = "ok"
)

// Statuses lists all status results in display order
var Statuses = []Status{StatusOK, StatusEmpty, StatusError}

// String returns the status as plain string
func (s Status) String() string {
	return string(s)
}
