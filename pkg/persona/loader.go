package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shodh-ai/voxagent/internal/log"
)

// LoadDir reads every persona YAML file in dir into the catalog.
// A missing directory is not an error: the built-ins still serve. A file
// that fails to parse is skipped with a log entry so one bad config does
// not take down the rest.
func (c *Catalog) LoadDir(dir string) error {
	logger := log.Component("persona")

	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("persona directory not found, using built-ins", "dir", dir)
			return nil
		}
		return fmt.Errorf("reading persona dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		p, err := loadFile(path)
		if err != nil {
			logger.Error("skipping persona config", "file", path, "error", err)
			continue
		}
		c.Add(p)
		loaded++
		logger.Debug("loaded persona config", "identity", p.Identity, "file", path)
	}

	logger.Info("persona configs loaded", "dir", dir, "count", loaded)
	return nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var p Config
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if p.Identity == "" {
		return Config{}, fmt.Errorf("%s: missing identity", filepath.Base(path))
	}
	return p, nil
}
