package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern matches the traces written by the home network simulation
const DefaultPattern = "trace-ml-ip-*.pcap"

// Discovery holds the trace files found for a set of arguments
type Discovery struct {
	Paths     []string // Paths: unique trace files, sorted
	Unmatched []string // Unmatched: glob patterns which did not match anything
}

// Discover expands the provided arguments into trace files. An argument is either
// a file, a directory (whose supported trace files are picked up, non-recursively)
// or a glob pattern. Plain file paths are kept even if they do not exist, so that
// the failure is reported when the trace is opened
func Discover(args ...string) (*Discovery, error) {
	d := &Discovery{}
	seen := make(map[string]struct{})
	add := func(path string) {
		path = filepath.Clean(path)
		if _, exists := seen[path]; exists {
			return
		}
		seen[path] = struct{}{}
		d.Paths = append(d.Paths, path)
	}

	for _, arg := range args {
		if hasMeta(arg) {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				d.Unmatched = append(d.Unmatched, arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			add(arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && IsSupported(e.Name()) {
				add(filepath.Join(arg, e.Name()))
			}
		}
	}

	sort.Strings(d.Paths)
	return d, nil
}

// IsSupported reports if a file name carries one of the known trace extensions
func IsSupported(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), gzipSuffix)
	_, ok := extensions[filepath.Ext(name)]
	return ok
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}
