// Package config holds the frozen per-run configuration for the
// covenant kernel. Every knob is a plain integer or string: nothing
// floating-point is ever hashed or compared, and a loaded config is
// validated once at startup and never mutated during a run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all covenant configuration.
type Config struct {
	Name string `yaml:"name"`

	Run         RunConfig         `yaml:"run"`
	Lease       LeaseConfig       `yaml:"lease"`
	Rent        RentConfig        `yaml:"rent"`
	Eligibility EligibilityConfig `yaml:"eligibility"`
	Amnesty     AmnestyConfig     `yaml:"amnesty"`
	Commitments CommitmentsConfig `yaml:"commitments"`
	Pool        []PoolEntry       `yaml:"pool"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RunConfig fixes the run's identity and extent.
type RunConfig struct {
	Seed         int64  `yaml:"seed"`
	Horizon      uint64 `yaml:"horizon"`       // Total epochs to run
	DatabasePath string `yaml:"database_path"` // Run-log sqlite file; empty keeps the log in memory
	Workspace    string `yaml:"workspace"`     // Root for logs; defaults to cwd
}

// LeaseConfig bounds every lease issued during the run.
type LeaseConfig struct {
	StepsCap              uint64 `yaml:"steps_cap"`               // Per-epoch step allowance before rent
	ActionsCap            uint64 `yaml:"actions_cap"`             // Per-epoch action allowance
	RenewalCost           uint64 `yaml:"renewal_cost"`            // Steps deducted from remaining budget at renewal
	MaxSuccessiveRenewals uint64 `yaml:"max_successive_renewals"` // Forced turnover; 0 disables renewal entirely
	Term                  uint64 `yaml:"term"`                    // Epochs between renewal checks (min 1)
}

// RentConfig is the frozen per-tier rent schedule. Exactly one entry
// per expressivity tier E0..E4, strictly increasing, all below
// steps_cap.
type RentConfig struct {
	Schedule []uint64 `yaml:"schedule"`
}

// EligibilityConfig controls the succession-time candidate filter.
type EligibilityConfig struct {
	Threshold uint64 `yaml:"threshold"` // K: streak >= K makes a candidate ineligible
}

// AmnestyConfig controls streak decay during constitutional lapse.
type AmnestyConfig struct {
	Interval uint64 `yaml:"interval"` // Lapse epochs between decay firings; 0 disables
	Decay    uint64 `yaml:"decay"`    // Amount subtracted from every streak per firing
}

// CommitmentsConfig seeds the genesis ledger.
type CommitmentsConfig struct {
	Cost    uint64            `yaml:"cost"` // Steps charged per epoch for upkeep, before agent actions
	Genesis []GenesisCommitment `yaml:"genesis"`
}

// GenesisCommitment declares one immutable obligation at kernel init.
// A commitment either references a builtin verifier by name or carries
// an inline Datalog rule program; when Rule is set the harness
// registers a rule verifier under the Verifier reference.
type GenesisCommitment struct {
	ID       string `yaml:"id"`
	Verifier string `yaml:"verifier"`       // Registry reference resolved by the harness
	TTL      uint64 `yaml:"ttl"`            // Epochs until expiry; 0 means infinite
	Rule     string `yaml:"rule,omitempty"` // Datalog program over the window trace predicates
	Goal     string `yaml:"goal,omitempty"` // Goal predicate the rules must derive; required with rule
}

// PoolEntry is one candidate policy class available to the generator.
type PoolEntry struct {
	Identity string `yaml:"identity"` // "{category}:{name}"
	Tier     uint8  `yaml:"tier"`     // Expressivity tier E0..E4
	Weight   uint64 `yaml:"weight"`   // Selection weight; 0 means 1
	Manifest string `yaml:"manifest"` // Opaque blob, logged and hashed, never interpreted
}

// LoggingConfig mirrors internal/logging.Options.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns a runnable baseline configuration: a two-candidate
// pool with one infinite genesis commitment, matching the shape used
// throughout the test suite.
func Default() Config {
	return Config{
		Name: "covenant-run",
		Run: RunConfig{
			Seed:    1,
			Horizon: 100,
		},
		Lease: LeaseConfig{
			StepsCap:              100,
			ActionsCap:            10,
			RenewalCost:           10,
			MaxSuccessiveRenewals: 5,
			Term:                  1,
		},
		Rent: RentConfig{
			Schedule: []uint64{5, 10, 20, 35, 60},
		},
		Eligibility: EligibilityConfig{Threshold: 3},
		Amnesty:     AmnestyConfig{Interval: 5, Decay: 1},
		Commitments: CommitmentsConfig{
			Genesis: []GenesisCommitment{
				{ID: "genesis-0", Verifier: "always-pass", TTL: 0},
			},
		},
		Pool: []PoolEntry{
			{Identity: "governor:athena", Tier: 1, Weight: 1},
			{Identity: "governor:minerva", Tier: 1, Weight: 1},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config from path, applies defaults for zero-value
// sections, applies environment overrides, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config as YAML, mainly for `covenant config show`
// and for pinning the effective config next to a run's database.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
