package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Dataset holds every labeled graph found in a dataset directory.
type Dataset struct {
	Graphs map[string]*Graph // graph_id -> Graph
	Labels map[string]int    // graph_id -> class label
}

// ParseError reports a dataset file that violates the naming convention.
type ParseError struct {
	File    string
	Message string
}

func (pe ParseError) Error() string {
	return fmt.Sprintf("dataset file %q: %s", pe.File, pe.Message)
}

// Load reads every graph file in dir. Filenames must follow the
// convention <anything>.<graph_id>.<label>.<ext> where the label is an
// integer class label. A single malformed filename or graph aborts the
// whole load.
func Load(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	ds := &Dataset{
		Graphs: make(map[string]*Graph, len(entries)),
		Labels: make(map[string]int, len(entries)),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		id, label, err := parseName(name)
		if err != nil {
			return nil, err
		}
		if _, ok := ds.Graphs[id]; ok {
			return nil, ParseError{File: name, Message: fmt.Sprintf("duplicate graph id %q", id)}
		}

		file, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to open graph file: %w", err)
		}
		graph, err := ReadGEXF(file, id)
		file.Close()
		if err != nil {
			return nil, err
		}

		ds.Graphs[id] = graph
		ds.Labels[id] = label
	}

	return ds, nil
}

// parseName extracts graph id and label from a dataset filename. The id
// is the third dot-separated segment from the end, the label the second.
func parseName(name string) (string, int, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return "", 0, ParseError{File: name, Message: "expected at least three dot-separated segments"}
	}

	id := parts[len(parts)-3]
	label, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return "", 0, ParseError{File: name, Message: fmt.Sprintf("label segment %q is not an integer", parts[len(parts)-2])}
	}

	return id, label, nil
}

// Len returns the number of loaded samples.
func (ds *Dataset) Len() int { return len(ds.Graphs) }

// IDs returns the graph identifiers in sorted order for deterministic
// iteration.
func (ds *Dataset) IDs() []string {
	ids := make([]string, 0, len(ds.Graphs))
	for id := range ds.Graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
