package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stewardhq/steward/internal/sanitize"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BlockThreshold() != sanitize.SevHigh {
		t.Errorf("block threshold = %s", cfg.BlockThreshold())
	}
	if cfg.Arbitration.PreemptionThreshold != 0.6 || cfg.Arbitration.RefinementThreshold != 0.7 {
		t.Errorf("thresholds = %+v", cfg.Arbitration)
	}
	if cfg.Router.Local.URL == "" || cfg.Router.Remote.URL == "" {
		t.Error("default router endpoints missing")
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
sanitizer:
  disabled_families: [pii_email]
  block_threshold: critical
  extra_patterns:
    - name: ticket_id
      regex: "TKT-[0-9]+"
      severity: low
network:
  require_policy: true
  endpoints:
    - host: api.example.com
      required_purpose: inference
      allowed_methods: [POST]
      timeout_seconds: 30
arbitration:
  preemption_threshold: 0.5
  refinement_threshold: 0.8
history:
  path: /tmp/steward-test/history.db
`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BlockThreshold() != sanitize.SevCritical {
		t.Errorf("block threshold = %s", cfg.BlockThreshold())
	}
	opts := cfg.SanitizerOptions()
	if len(opts.DisabledFamilies) != 1 || opts.DisabledFamilies[0] != "pii_email" {
		t.Errorf("disabled families = %v", opts.DisabledFamilies)
	}
	if len(opts.ExtraPatterns) != 1 || opts.ExtraPatterns[0].Severity != sanitize.SevLow {
		t.Errorf("extra patterns = %+v", opts.ExtraPatterns)
	}

	g := cfg.GuardOptions()
	if !g.RequirePolicy || len(g.Policies) != 1 || g.Policies[0].Host != "api.example.com" {
		t.Errorf("guard options = %+v", g)
	}
	if g.Policies[0].TimeoutSeconds != 30 {
		t.Errorf("timeout_seconds = %d, want 30", g.Policies[0].TimeoutSeconds)
	}

	th := cfg.Thresholds()
	if th.Preemption != 0.5 || th.Refinement != 0.8 {
		t.Errorf("thresholds = %+v", th)
	}
	if cfg.History.Path != "/tmp/steward-test/history.db" {
		t.Errorf("history path = %s", cfg.History.Path)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Router.Local.URL == "" {
		t.Error("router default lost on partial file")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sanitizer: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUnknownSeverityDegradesToMedium(t *testing.T) {
	cfg := Default()
	cfg.Sanitizer.ExtraPatterns = []ExtraPatternDef{{Name: "x", Regex: "x", Severity: "catastrophic"}}
	opts := cfg.SanitizerOptions()
	if opts.ExtraPatterns[0].Severity != sanitize.SevMedium {
		t.Errorf("severity = %s", opts.ExtraPatterns[0].Severity)
	}
}

func TestDefaultPathHonorsEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/steward/config.yaml")
	if got := DefaultPath(); got != "/etc/steward/config.yaml" {
		t.Errorf("path = %s", got)
	}
}
