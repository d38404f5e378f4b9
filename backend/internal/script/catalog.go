// Package script manages the demo programs exposed by the streaming relay:
// the fixed catalog of launchable demos, and the per-connection subprocess
// session that streams their output.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the optional catalog manifest inside the scripts directory.
const ManifestName = "demos.yaml"

// Demo describes one launchable demo program.
type Demo struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Command []string `yaml:"command"`
}

// Catalog is the fixed, server-known set of demos. Built once at startup;
// read-only afterwards.
type Catalog struct {
	demos map[string]Demo
	order []string
}

// NewCatalog builds a catalog from an explicit demo list.
func NewCatalog(demos []Demo) (*Catalog, error) {
	c := &Catalog{demos: make(map[string]Demo, len(demos))}
	for _, d := range demos {
		if d.ID == "" || len(d.Command) == 0 {
			return nil, fmt.Errorf("demo %+v: id and command are required", d)
		}
		if _, dup := c.demos[d.ID]; dup {
			return nil, fmt.Errorf("duplicate demo id %q", d.ID)
		}
		if d.Title == "" {
			d.Title = titleFromID(d.ID)
		}
		c.demos[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Load builds the catalog from dir. A demos.yaml manifest is authoritative
// when present; otherwise every *.py file becomes a demo run with python3 in
// unbuffered mode, titled from its file stem.
func Load(dir string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err == nil {
		var manifest struct {
			Demos []Demo `yaml:"demos"`
		}
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
		}
		return NewCatalog(manifest.Demos)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", ManifestName, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.py"))
	if err != nil {
		return nil, err
	}
	demos := make([]Demo, 0, len(matches))
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".py")
		demos = append(demos, Demo{
			ID:      stem,
			Title:   titleFromID(stem),
			Command: []string{"python3", "-u", path},
		})
	}
	return NewCatalog(demos)
}

// Get returns the demo for id, if known.
func (c *Catalog) Get(id string) (Demo, bool) {
	d, ok := c.demos[id]
	return d, ok
}

// List returns all demos sorted by ID.
func (c *Catalog) List() []Demo {
	out := make([]Demo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.demos[id])
	}
	return out
}

// titleFromID turns "rock_paper_scissors" into "Rock Paper Scissors".
func titleFromID(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
