package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names written by WriteFiles.
const (
	MarkdownFile = "stats.md"
	CSVFile      = "daily_averages.csv"
	YAMLFile     = "stats.yaml"
	JSONFile     = "stats.json"
)

// WriteFiles writes all report renderings into dir, creating it if needed.
// Returns the written paths in a fixed order.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	yamlOut, err := RenderYAML(r)
	if err != nil {
		return nil, err
	}
	jsonOut, err := RenderJSON(r)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{MarkdownFile, []byte(RenderMarkdown(r))},
		{CSVFile, []byte(RenderCSV(r.DailyRows))},
		{YAMLFile, yamlOut},
		{JSONFile, jsonOut},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
