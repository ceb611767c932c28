// Package config loads the steward configuration file. A missing file is
// not an error: every section has shipped defaults, and Load degrades to
// them so the core always starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stewardhq/steward/internal/arbiter"
	"github.com/stewardhq/steward/internal/netguard"
	"github.com/stewardhq/steward/internal/sanitize"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "STEWARD_CONFIG"

// Config is the full operator-facing configuration.
type Config struct {
	Sanitizer   SanitizerConfig   `yaml:"sanitizer"`
	Network     NetworkConfig     `yaml:"network"`
	Arbitration ArbitrationConfig `yaml:"arbitration"`
	Router      RouterConfig      `yaml:"router"`
	Audit       AuditConfig       `yaml:"audit"`
	History     HistoryConfig     `yaml:"history"`
}

// SanitizerConfig customizes the pattern battery.
type SanitizerConfig struct {
	DisabledFamilies []string          `yaml:"disabled_families"`
	ExtraPatterns    []ExtraPatternDef `yaml:"extra_patterns"`
	// BlockThreshold is the severity at or above which inbound commands
	// are rejected instead of redacted-and-forwarded.
	BlockThreshold string `yaml:"block_threshold"`
}

// ExtraPatternDef defines a custom pattern from config.
type ExtraPatternDef struct {
	Name     string `yaml:"name"`
	Regex    string `yaml:"regex"`
	Severity string `yaml:"severity"`
}

// NetworkConfig customizes the network trust layer.
type NetworkConfig struct {
	RequirePolicy bool                      `yaml:"require_policy"`
	ExtraTrackers []string                  `yaml:"extra_trackers"`
	Endpoints     []netguard.EndpointPolicy `yaml:"endpoints"`
}

// ArbitrationConfig tunes the refine/preempt gates.
type ArbitrationConfig struct {
	PreemptionThreshold float64 `yaml:"preemption_threshold"`
	RefinementThreshold float64 `yaml:"refinement_threshold"`
}

// BackendConfig describes one inference endpoint. APIKeyEnv names the
// environment variable holding the key; keys never live in the file.
type BackendConfig struct {
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// RouterConfig describes the two execution paths.
type RouterConfig struct {
	Local  BackendConfig `yaml:"local"`
	Remote BackendConfig `yaml:"remote"`
}

// AuditConfig locates the audit log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig locates the plan archive.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the shipped configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".steward")
	return Config{
		Sanitizer: SanitizerConfig{
			BlockThreshold: string(sanitize.SevHigh),
		},
		Arbitration: ArbitrationConfig{
			PreemptionThreshold: arbiter.DefaultThresholds().Preemption,
			RefinementThreshold: arbiter.DefaultThresholds().Refinement,
		},
		Router: RouterConfig{
			Local:  BackendConfig{URL: "http://127.0.0.1:8080/v1/chat/completions", Model: "steward-local"},
			Remote: BackendConfig{URL: "https://api.openai.com/v1/chat/completions", Model: "gpt-4o-mini", APIKeyEnv: "STEWARD_REMOTE_API_KEY"},
		},
		Audit:   AuditConfig{Path: filepath.Join(base, "audit.jsonl")},
		History: HistoryConfig{Path: filepath.Join(base, "history.db")},
	}
}

// DefaultPath returns the config file location: $STEWARD_CONFIG if set,
// otherwise ~/.steward/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".steward", "config.yaml")
}

// Load reads the config at path (DefaultPath if empty). A missing file
// yields the defaults; a file that exists but does not parse is an
// error, never a silent fallback.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SanitizerOptions converts the config section into sanitizer options.
// Unknown severities degrade to medium; invalid regexes are skipped at
// construction by the sanitizer itself.
func (c Config) SanitizerOptions() sanitize.Options {
	opts := sanitize.Options{DisabledFamilies: c.Sanitizer.DisabledFamilies}
	for _, def := range c.Sanitizer.ExtraPatterns {
		sev := sanitize.Severity(def.Severity)
		if _, ok := sanitize.SevRank[sev]; !ok {
			sev = sanitize.SevMedium
		}
		opts.ExtraPatterns = append(opts.ExtraPatterns, sanitize.ExtraPattern{
			Name:     def.Name,
			Regex:    def.Regex,
			Severity: sev,
		})
	}
	return opts
}

// GuardOptions converts the network section into guard options.
func (c Config) GuardOptions() netguard.Options {
	return netguard.Options{
		Policies:      c.Network.Endpoints,
		RequirePolicy: c.Network.RequirePolicy,
		ExtraTrackers: c.Network.ExtraTrackers,
	}
}

// Thresholds converts the arbitration section. Zero values fall back to
// the defaults inside arbiter.New.
func (c Config) Thresholds() arbiter.Thresholds {
	return arbiter.Thresholds{
		Preemption: c.Arbitration.PreemptionThreshold,
		Refinement: c.Arbitration.RefinementThreshold,
	}
}

// BlockThreshold returns the severity at or above which commands are
// rejected. Unknown values fall back to high.
func (c Config) BlockThreshold() sanitize.Severity {
	sev := sanitize.Severity(c.Sanitizer.BlockThreshold)
	if _, ok := sanitize.SevRank[sev]; !ok {
		return sanitize.SevHigh
	}
	return sev
}
