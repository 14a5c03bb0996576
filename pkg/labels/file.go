package labels

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseTable reads a YAML (or JSON) list of entries, e.g.
//
//	- {port: 9001, label: 1, name: camera}
//	- {port: 9002, label: 2, name: temperature sensor}
func ParseTable(r io.Reader) (*Table, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("failed to decode label table: %w", err)
	}
	return New(entries...)
}

// LoadFile reads a label table from disk
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label table: %w", err)
	}
	defer f.Close()

	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("label table %s: %w", path, err)
	}
	return t, nil
}
