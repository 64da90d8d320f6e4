package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one job in the output manifest.
type ManifestEntry struct {
	Name          string   `json:"name"`
	Configuration string   `json:"configuration"`
	Bundle        string   `json:"bundle,omitempty"`
	Instances     int      `json:"instances"`
	Shell         int      `json:"shell,omitempty"`
	Assets        int      `json:"assets"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// WriteManifest writes manifest.json describing every result. Bundle
// paths are written relative to the manifest's directory.
func WriteManifest(path string, results []Result) error {
	dir := filepath.Dir(path)
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		bundle := r.Bundle
		if rel, err := filepath.Rel(dir, bundle); err == nil && bundle != "" {
			bundle = filepath.ToSlash(rel)
		}
		entries[i] = ManifestEntry{
			Name:          r.Name,
			Configuration: r.Configuration,
			Bundle:        bundle,
			Instances:     r.Instances,
			Shell:         r.Shell,
			Assets:        r.Assets,
			Warnings:      r.Warnings,
			Error:         r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
