// Package targets loads the ordered list of endpoints to probe.
package targets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// tomlFile is the TOML layout: a top-level array of tables.
//
//	[[targets]]
//	name = "api"
//	url  = "https://api.example.com/health"
type tomlFile struct {
	Targets []domain.Target `toml:"targets"`
}

// Load reads path and returns its targets in file order. A missing file is
// an empty target set. JSON is read through the YAML decoder.
func Load(path string) ([]domain.Target, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Target{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return Parse(filepath.Ext(path), b)
}

// Parse decodes a target list; ext selects the format (".toml" or anything
// else for YAML/JSON).
func Parse(ext string, b []byte) ([]domain.Target, error) {
	var list []domain.Target
	switch strings.ToLower(ext) {
	case ".toml":
		var f tomlFile
		if err := toml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse toml targets: %w", err)
		}
		list = f.Targets
	default:
		if len(strings.TrimSpace(string(b))) == 0 {
			return []domain.Target{}, nil
		}
		if err := yaml.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("parse targets: %w", err)
		}
	}
	return normalize(list)
}

// normalize trims entries but keeps every one of them: a bad URL is the
// prober's to report as a failed result, not a reason to skip the run.
func normalize(list []domain.Target) ([]domain.Target, error) {
	out := make([]domain.Target, 0, len(list))
	for _, t := range list {
		t.Name = strings.TrimSpace(t.Name)
		t.URL = strings.TrimSpace(t.URL)
		out = append(out, t)
	}
	return out, nil
}

// Check lists entries that will never probe successfully or that share a
// URL with an earlier entry. It is advisory; Load accepts them.
func Check(list []domain.Target) []error {
	var problems []error
	seen := make(map[string]int, len(list))
	for i, t := range list {
		if t.Name == "" {
			problems = append(problems, fmt.Errorf("entry %d has no name", i))
		}
		if !isHTTPURL(t.URL) {
			problems = append(problems, fmt.Errorf("entry %d (%q) has invalid url %q", i, t.Name, t.URL))
		}
		if j, dup := seen[t.URL]; dup {
			problems = append(problems, fmt.Errorf("entry %d (%q) repeats the url of entry %d", i, t.Name, j))
		} else {
			seen[t.URL] = i
		}
	}
	return problems
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// File is a target list on disk; it satisfies runner.TargetSource.
type File string

func (f File) Load(_ context.Context) ([]domain.Target, error) {
	return Load(string(f))
}
