// Package persona manages agent identities: the system prompt, voice, and
// tool allow-list an agent adopts for a given page context. Personas are
// loaded from YAML files at startup, with a built-in set guaranteeing the
// core pages always resolve.
package persona

// Defaults applied when a persona config omits a field.
const (
	DefaultVoice       = "Puck"
	DefaultTemperature = 0.7

	// DefaultIdentity is the fallback persona used when no page-specific
	// persona matches.
	DefaultIdentity = "default-assistant"
)

// Config is one agent identity.
type Config struct {
	// Identity is the unique name, e.g. "speaking-teacher-default".
	Identity string `yaml:"identity" json:"identity"`

	// Description summarizes the persona for listings.
	Description string `yaml:"description" json:"description"`

	// Instructions is the system prompt handed to the model backend.
	Instructions string `yaml:"instructions" json:"instructions"`

	// Voice selects the synthesis voice.
	Voice string `yaml:"voice" json:"voice"`

	// Temperature tunes generation randomness.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// AllowedTools names the tools this persona may call, in the order
	// they should be advertised.
	AllowedTools []string `yaml:"allowed_tools" json:"allowed_tools"`

	// SupportedPages lists additional page types this persona serves.
	SupportedPages []string `yaml:"supported_pages" json:"supported_pages"`
}

// ToolAllowlist returns the persona's authorized tool names.
// Satisfies tool.Identity.
func (c Config) ToolAllowlist() []string {
	return c.AllowedTools
}

// withDefaults fills unset fields so downstream code never has to.
func (c Config) withDefaults() Config {
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}
