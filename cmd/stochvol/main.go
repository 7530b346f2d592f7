// Command stochvol 随机波动率模型的蒙特卡洛定价与离散格式研究工具.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/stochvol/algorithm/sim"
	"github.com/wyfcoding/stochvol/config"
	"github.com/wyfcoding/stochvol/logging"
	"github.com/wyfcoding/stochvol/metrics"
	"github.com/wyfcoding/stochvol/tracing"
)

var version = "dev"

// app 命令执行期间共享的运行时依赖.
type app struct {
	cfgFile string
	flags   overrides

	cfg      config.Config
	logger   *logging.Logger
	mc       *sim.MonteCarlo
	cleanups []func()
}

// overrides 命令行上显式给出的参数覆盖配置文件.
type overrides struct {
	paths   int
	steps   int
	seed    uint64
	workers int
	grid    []int
	scheme  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := a.rootCommand().ExecuteContext(ctx)
	a.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "stochvol",
		Short:         "Monte Carlo pricing under Black-Scholes and Heston dynamics",
		Long:          `Prices European options by simulating discretized sample paths and measures how variance discretization schemes behave.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "TOML config file (defaults and APP_* env vars when empty)")
	pf.IntVar(&a.flags.paths, "paths", 0, "number of simulated paths")
	pf.IntVar(&a.flags.steps, "steps", 0, "number of time steps")
	pf.Uint64Var(&a.flags.seed, "seed", 0, "random seed (0 uses the system source)")
	pf.IntVar(&a.flags.workers, "workers", 0, "parallel workers (0 uses GOMAXPROCS)")
	pf.IntSliceVar(&a.flags.grid, "grid", nil, "step grid for converge, leakage and naive")
	pf.StringVar(&a.flags.scheme, "scheme", "", "heston variance scheme: naive, absorption or full_truncation")

	root.AddCommand(
		a.priceCommand(),
		a.convergeCommand(),
		a.leakageCommand(),
		a.naiveCommand(),
		a.bsCommand(),
		a.pathsCommand(),
		a.configCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Load(a.cfgFile, &a.cfg); err != nil {
		return err
	}
	a.applyOverrides(cmd)
	if err := config.Validate(&a.cfg); err != nil {
		return err
	}

	a.logger = logging.InitLogger(logging.Config{
		Service:    "stochvol",
		Module:     cmd.Name(),
		Level:      a.cfg.Log.Level,
		File:       a.cfg.Log.File,
		Console:    a.cfg.Log.Console,
		MaxSize:    a.cfg.Log.MaxSize,
		MaxBackups: a.cfg.Log.MaxBackups,
		MaxAge:     a.cfg.Log.MaxAge,
		Compress:   a.cfg.Log.Compress,
		Stream:     cmd.ErrOrStderr(),
	})

	config.PrintWithMask(a.cfg)

	a.cleanups = append(a.cleanups, logging.LogDuration(cmd.Context(), cmd.Name()))

	shutdown, err := tracing.InitTracer(a.cfg.Tracing)
	if err != nil {
		return err
	}
	a.cleanups = append(a.cleanups, func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Error("tracer shutdown failed", "error", err)
		}
	})

	opts := []sim.Option{
		sim.WithWorkers(a.cfg.Engine.Workers),
		sim.WithLogger(a.logger),
	}
	if a.cfg.Engine.Seed != 0 {
		opts = append(opts, sim.WithSources(sim.Seeded(a.cfg.Engine.Seed)))
	}
	if a.cfg.Metrics.Enabled {
		reg := metrics.NewMetrics("stochvol")
		source := "system"
		if a.cfg.Engine.Seed != 0 {
			source = "seeded"
		}
		reg.RegisterBuildInfo(metrics.EngineInfo{
			Service: "stochvol",
			Version: version,
			Scheme:  a.cfg.Heston.Scheme,
			Source:  source,
		})
		opts = append(opts, sim.WithMetrics(metrics.NewPricingMetrics(reg)))
		a.cleanups = append(a.cleanups, reg.ExposeHttp(a.cfg.Metrics.Port))
	}
	a.mc = sim.NewMonteCarlo(opts...)
	return nil
}

func (a *app) applyOverrides(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("paths") {
		a.cfg.Engine.Paths = a.flags.paths
	}
	if f.Changed("steps") {
		a.cfg.Engine.Steps = a.flags.steps
	}
	if f.Changed("seed") {
		a.cfg.Engine.Seed = a.flags.seed
	}
	if f.Changed("workers") {
		a.cfg.Engine.Workers = a.flags.workers
	}
	if f.Changed("grid") {
		a.cfg.Engine.Grid = a.flags.grid
	}
	if f.Changed("scheme") {
		a.cfg.Heston.Scheme = a.flags.scheme
	}
}

func (a *app) teardown() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

func (a *app) hestonParams() sim.HestonParams {
	h := a.cfg.Heston
	return sim.HestonParams{
		Drift: h.Drift,
		Kappa: h.Kappa,
		Theta: h.Theta,
		Omega: h.Omega,
		Rho:   h.Rho,
		V0:    h.V0,
	}
}

func (a *app) blackScholesParams() sim.BlackScholesParams {
	return sim.BlackScholesParams{
		Drift:      a.cfg.BlackScholes.Drift,
		Volatility: a.cfg.BlackScholes.Volatility,
	}
}

func (a *app) hestonModel() (sim.Model, error) {
	scheme, err := sim.ParseScheme(a.cfg.Heston.Scheme)
	if err != nil {
		return nil, err
	}
	return sim.NewHeston(a.hestonParams(), scheme)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
