package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"covenant/internal/config"
	"covenant/internal/generator"
	"covenant/internal/kernel"
	"covenant/internal/logging"
	"covenant/internal/runlog"
	"covenant/internal/verifier"
)

// runCmd executes a full run from a YAML configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a run to its horizon and print the summary",
	Long: `Loads the run configuration, seeds the genesis commitment ledger,
runs the genesis succession event, and ticks the kernel to its horizon.

The run log is persisted to the configured sqlite database (or kept in
memory when no database path is set) and the run summary is derived
from the log alone, so 'covenant replay' reproduces it bit-for-bit.

Example:
  covenant run -c run.yaml`,
	RunE: executeRun,
}

func executeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	if err := configureLogging(cfg); err != nil {
		return err
	}
	defer logging.Close()

	log, closeLog, err := openRunLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	pool, err := generator.NewFixedPool(cfg.Pool)
	if err != nil {
		return err
	}

	logger.Info("Starting run",
		zap.String("name", cfg.Name),
		zap.Int64("seed", cfg.Run.Seed),
		zap.Uint64("horizon", cfg.Run.Horizon))

	k, err := kernel.New(kernelParams(cfg), kernel.Deps{
		Generator: pool,
		Verifiers: buildRegistry(cfg),
		Agent:     syntheticAgent(cfg.Run.Seed, cfg.Lease.StepsCap),
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize kernel: %w", err)
	}

	if err := k.Run(); err != nil {
		return fmt.Errorf("run failed at epoch %d: %w", k.Epoch(), err)
	}

	records, err := log.Records()
	if err != nil {
		return err
	}
	summary, err := kernel.Summarize(records)
	if err != nil {
		return err
	}

	logger.Info("Run complete",
		zap.Uint64("epochs", summary.Epochs),
		zap.Uint64("records", uint64(len(records))))
	fmt.Print(summary.String())
	return nil
}

// loadRunConfig resolves the -c flag, falling back to the builtin
// default configuration when no file is given.
func loadRunConfig() (config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		if workspace != "" {
			cfg.Run.Workspace = workspace
		}
		return cfg, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if workspace != "" {
		cfg.Run.Workspace = workspace
	}
	return cfg, nil
}

func configureLogging(cfg config.Config) error {
	return logging.Configure(logging.Options{
		Workspace:  cfg.Run.Workspace,
		Debug:      cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	})
}

// openRunLog returns the configured log backend. A database path gets
// a persistent sqlite chain; otherwise the log stays in memory and the
// run is summary-only. A run owns its database exclusively: appending
// a second genesis record to an existing chain would break pre/post
// continuity and fail replay, so a non-empty database is refused.
func openRunLog(cfg config.Config) (runlog.Log, func(), error) {
	if cfg.Run.DatabasePath == "" {
		return runlog.NewMemoryLog(), func() {}, nil
	}
	l, err := runlog.OpenSQLiteLog(cfg.Run.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	if n := l.Len(); n > 0 {
		_ = l.Close()
		return nil, nil, fmt.Errorf(
			"run log %s already holds %d records; use a fresh database per run ('covenant replay' verifies existing ones)",
			cfg.Run.DatabasePath, n)
	}
	return l, func() { _ = l.Close() }, nil
}

// buildRegistry resolves the verifier references the config declares.
// Builtins are preloaded; commitments carrying an inline rule program
// get a Mangle-backed verifier registered under their reference.
func buildRegistry(cfg config.Config) *verifier.Registry {
	registry := verifier.NewRegistry()
	for _, g := range cfg.Commitments.Genesis {
		if g.Rule != "" {
			registry.Register(g.Verifier, verifier.NewRuleVerifier(g.Rule, g.Goal))
		}
	}
	return registry
}

// kernelParams freezes the loaded config into kernel parameters.
func kernelParams(cfg config.Config) kernel.Params {
	genesis := make([]kernel.CommitmentDecl, 0, len(cfg.Commitments.Genesis))
	for _, g := range cfg.Commitments.Genesis {
		genesis = append(genesis, kernel.CommitmentDecl{
			ID:          g.ID,
			VerifierRef: g.Verifier,
			TTL:         g.TTL,
		})
	}
	return kernel.Params{
		Seed:                  cfg.Run.Seed,
		Horizon:               cfg.Run.Horizon,
		StepsCap:              cfg.Lease.StepsCap,
		ActionsCap:            cfg.Lease.ActionsCap,
		RenewalCost:           cfg.Lease.RenewalCost,
		CommitmentCost:        cfg.Commitments.Cost,
		MaxSuccessiveRenewals: cfg.Lease.MaxSuccessiveRenewals,
		Term:                  cfg.Lease.Term,
		RentSchedule:          cfg.Rent.Schedule,
		Threshold:             cfg.Eligibility.Threshold,
		AmnestyInterval:       cfg.Amnesty.Interval,
		AmnestyDecay:          cfg.Amnesty.Decay,
		Genesis:               genesis,
	}
}

// syntheticAgent is the workload shipped with the harness: a
// deterministic action stream derived from (seed, epoch) alone, so a
// rerun with the same config reproduces it exactly. Real policy agents
// plug in through the same AgentFunc seam.
func syntheticAgent(seed int64, stepsCap uint64) kernel.AgentFunc {
	return func(lease kernel.AuthorityLease, budget kernel.Budget, epoch uint64) []kernel.Action {
		rng := rand.New(rand.NewSource(seed ^ int64(epoch)*0x9e3779b9))
		n := 1 + rng.Intn(3)
		actions := make([]kernel.Action, 0, n)
		for i := 0; i < n; i++ {
			steps := uint64(rng.Int63n(int64(stepsCap/4) + 1))
			actions = append(actions, kernel.Action{
				Kind:  fmt.Sprintf("work-%d", i),
				Steps: steps,
			})
		}
		return actions
	}
}
