package persona

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shodh-ai/voxagent/internal/log"
)

// ErrNotFound is returned when an identity is not in the catalog.
var ErrNotFound = errors.New("persona: not found")

// Catalog holds all known personas keyed by identity.
// Catalogs are populated at startup and read-only afterwards, but the
// mutex keeps them safe for concurrent resolution anyway.
type Catalog struct {
	mu       sync.RWMutex
	personas map[string]Config
	order    []string
}

// NewCatalog creates a catalog pre-populated with the built-in personas.
func NewCatalog() *Catalog {
	c := &Catalog{personas: make(map[string]Config)}
	for _, p := range builtins() {
		c.add(p)
	}
	return c
}

func (c *Catalog) add(p Config) {
	p = p.withDefaults()
	if _, exists := c.personas[p.Identity]; !exists {
		c.order = append(c.order, p.Identity)
	}
	c.personas[p.Identity] = p
}

// Add registers or replaces a persona. YAML-loaded personas override
// built-ins with the same identity.
func (c *Catalog) Add(p Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(p)
}

// Resolve returns the persona with the given identity.
func (c *Catalog) Resolve(identity string) (Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.personas[identity]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	return p, nil
}

// ResolveForPage picks the persona serving a page type. Resolution walks
// a fixed chain: teacher-default naming conventions first, then a direct
// base-name match, then supported_pages declarations, and finally the
// default assistant. It never fails; an unknown page gets the default.
func (c *Catalog) ResolveForPage(pageType string) Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logger := log.Component("persona")
	page := NormalizePage(pageType)
	base := strings.TrimSuffix(page, "page")

	for _, candidate := range []string{
		base + "-teacher-default",
		base + "_teacher_default",
		base,
	} {
		if p, ok := c.personas[candidate]; ok {
			logger.Info("resolved persona for page", "page", page, "identity", p.Identity)
			return p
		}
	}

	for _, identity := range c.order {
		p := c.personas[identity]
		for _, supported := range p.SupportedPages {
			if supported == page || supported == base {
				logger.Info("resolved persona via supported pages", "page", page, "identity", identity)
				return p
			}
		}
	}

	if p, ok := c.personas[DefaultIdentity]; ok {
		logger.Info("no persona for page, using default", "page", page)
		return p
	}

	// The default assistant is a built-in, so this only happens if a
	// caller built an empty catalog by hand.
	logger.Warn("catalog has no default assistant", "page", page)
	return Config{
		Identity:     "minimal-default",
		Instructions: "You are a helpful assistant for language practice.",
	}.withDefaults()
}

// List returns all personas in registration order.
func (c *Catalog) List() []Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Config, 0, len(c.order))
	for _, identity := range c.order {
		out = append(out, c.personas[identity])
	}
	return out
}

// NormalizePage canonicalizes a page type string: lowercased, trimmed,
// slashes stripped, with the bare "speaking" alias mapped to its page.
func NormalizePage(pageType string) string {
	page := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(pageType)), "/", "")
	if page == "speaking" {
		page = "speakingpage"
	}
	return page
}
