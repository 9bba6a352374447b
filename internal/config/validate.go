package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TierCount is the number of expressivity tiers (E0..E4). The rent
// schedule must carry exactly one entry per tier.
const TierCount = 5

// MaxWeight bounds a pool entry's selection weight so summed weights
// stay inside the succession PRNG's signed range.
const MaxWeight = 1 << 32

// Configuration errors. All are fatal before the run starts; the
// kernel refuses to boot on any of them.
var (
	ErrNonMonotonicRent = errors.New("rent schedule is not strictly increasing")
	ErrRentExceedsCap   = errors.New("rent meets or exceeds steps cap")
	ErrEmptyGenesis     = errors.New("genesis commitment set is empty")
	ErrEmptyPool        = errors.New("candidate pool is empty")
	ErrBadConfig        = errors.New("invalid configuration")
)

// Validate rejects configurations the kernel cannot honor. Called at
// load time; a run never starts on an invalid config.
func (c *Config) Validate() error {
	if c.Run.Horizon == 0 {
		return fmt.Errorf("%w: run horizon must be positive", ErrBadConfig)
	}
	if c.Lease.StepsCap == 0 {
		return fmt.Errorf("%w: steps_cap must be positive", ErrBadConfig)
	}
	if c.Lease.ActionsCap == 0 {
		return fmt.Errorf("%w: actions_cap must be positive", ErrBadConfig)
	}
	if c.Lease.Term == 0 {
		return fmt.Errorf("%w: lease term must be at least 1 epoch", ErrBadConfig)
	}
	if c.Eligibility.Threshold == 0 {
		return fmt.Errorf("%w: eligibility threshold must be positive", ErrBadConfig)
	}

	if len(c.Rent.Schedule) != TierCount {
		return fmt.Errorf("%w: rent schedule needs exactly %d entries, got %d",
			ErrBadConfig, TierCount, len(c.Rent.Schedule))
	}
	for i, r := range c.Rent.Schedule {
		if i > 0 && r <= c.Rent.Schedule[i-1] {
			return fmt.Errorf("%w: rent(E%d)=%d <= rent(E%d)=%d",
				ErrNonMonotonicRent, i, r, i-1, c.Rent.Schedule[i-1])
		}
		if r >= c.Lease.StepsCap {
			return fmt.Errorf("%w: rent(E%d)=%d >= steps_cap=%d",
				ErrRentExceedsCap, i, r, c.Lease.StepsCap)
		}
	}

	if len(c.Commitments.Genesis) == 0 {
		return ErrEmptyGenesis
	}
	seen := make(map[string]bool, len(c.Commitments.Genesis))
	for _, g := range c.Commitments.Genesis {
		if g.ID == "" || g.Verifier == "" {
			return fmt.Errorf("%w: genesis commitment needs id and verifier", ErrBadConfig)
		}
		if seen[g.ID] {
			return fmt.Errorf("%w: duplicate genesis commitment id %q", ErrBadConfig, g.ID)
		}
		if g.Rule != "" && g.Goal == "" {
			return fmt.Errorf("%w: genesis commitment %q has a rule but no goal predicate", ErrBadConfig, g.ID)
		}
		seen[g.ID] = true
	}

	if len(c.Pool) == 0 {
		return ErrEmptyPool
	}
	for _, p := range c.Pool {
		if !strings.Contains(p.Identity, ":") {
			return fmt.Errorf("%w: pool identity %q is not category:name", ErrBadConfig, p.Identity)
		}
		if int(p.Tier) >= TierCount {
			return fmt.Errorf("%w: pool identity %q has tier E%d beyond E%d",
				ErrBadConfig, p.Identity, p.Tier, TierCount-1)
		}
		if p.Weight > MaxWeight {
			return fmt.Errorf("%w: pool identity %q weight %d exceeds %d",
				ErrBadConfig, p.Identity, p.Weight, uint64(MaxWeight))
		}
	}

	return nil
}

// applyEnvOverrides lets CI sweeps vary a run without editing config
// files. Only integer knobs that change regime behavior are exposed.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COVENANT_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Run.Seed = n
		}
	}
	if v := os.Getenv("COVENANT_HORIZON"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Run.Horizon = n
		}
	}
	if v := os.Getenv("COVENANT_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Eligibility.Threshold = n
		}
	}
	if v := os.Getenv("COVENANT_MAX_RENEWALS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Lease.MaxSuccessiveRenewals = n
		}
	}
	if v := os.Getenv("COVENANT_DEBUG"); v != "" {
		c.Logging.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}
