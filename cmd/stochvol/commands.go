package main

import (
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/wyfcoding/stochvol/algorithm/finance"
	"github.com/wyfcoding/stochvol/algorithm/sim"
	"github.com/wyfcoding/stochvol/algorithm/types"
	"github.com/wyfcoding/stochvol/config"
	"github.com/wyfcoding/stochvol/xerrors"
)

type priceReport struct {
	Model                 string            `json:"model"`
	OptionType            types.OptionType  `json:"option_type"`
	Result                sim.PricingResult `json:"result"`
	Benchmark             *float64          `json:"benchmark,omitempty"`
	NegativeVarianceFixes *int64            `json:"negative_variance_fixes,omitempty"`
}

func (a *app) priceCommand() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price the configured contract by Monte Carlo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			optionType, err := types.ParseOptionType(a.cfg.Contract.OptionType)
			if err != nil {
				return err
			}

			var m sim.Model
			switch strings.ToLower(model) {
			case "heston":
				m, err = a.hestonModel()
			case "bs", "black_scholes":
				m, err = sim.NewBlackScholes(a.blackScholesParams())
			default:
				err = xerrors.ErrInvalidInput.Derive("unknown model %q", model)
			}
			if err != nil {
				return err
			}

			c := a.cfg.Contract
			res, err := a.mc.PriceOption(cmd.Context(), m, optionType, c.Spot, c.Strike, c.Maturity, a.cfg.Engine.Steps, a.cfg.Engine.Paths)
			if err != nil {
				return err
			}
			report := priceReport{Model: m.Name(), OptionType: optionType, Result: res}
			if counter, ok := m.(sim.NegativeVarianceCounter); ok {
				fixes := counter.NegativeVarianceFixes()
				report.NegativeVarianceFixes = &fixes
			}
			if bs, ok := m.(*sim.BlackScholes); ok {
				p := bs.Params()
				ref := finance.ForwardCall(c.Spot, c.Strike, c.Maturity, p.Drift, p.Volatility)
				if optionType == types.OptionTypePut {
					ref = finance.ForwardPut(c.Spot, c.Strike, c.Maturity, p.Drift, p.Volatility)
				}
				report.Benchmark = &ref
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&model, "model", "heston", "model to simulate: heston or bs")
	return cmd
}

func (a *app) convergeCommand() *cobra.Command {
	var benchmark float64
	return withBenchmarkFlag(&cobra.Command{
		Use:   "converge",
		Short: "Report discretization bias and standard error of the Heston call across a step grid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheme, err := sim.ParseScheme(a.cfg.Heston.Scheme)
			if err != nil {
				return err
			}
			params := a.hestonParams()
			factory := func() (sim.Model, error) { return sim.NewHeston(params, scheme) }

			c := a.cfg.Contract
			points, err := a.mc.Convergence(cmd.Context(), factory, c.Spot, c.Strike, c.Maturity, a.cfg.Engine.Grid, a.cfg.Engine.Paths, benchmark)
			if err != nil {
				return err
			}
			return writeJSON(cmd, points)
		},
	}, &benchmark)
}

func withBenchmarkFlag(cmd *cobra.Command, benchmark *float64) *cobra.Command {
	cmd.Flags().Float64Var(benchmark, "benchmark", sim.HestonBenchmarkPrice, "reference forward price the bias is measured against")
	return cmd
}

func (a *app) leakageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leakage",
		Short: "Measure realized spot/variance correlation against rho across a step grid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Contract
			points, err := a.mc.Leakage(cmd.Context(), a.hestonParams(), a.cfg.Engine.Grid, c.Spot, c.Maturity, a.cfg.Engine.Paths)
			if err != nil {
				return err
			}
			return writeJSON(cmd, points)
		},
	}
}

type naivePoint struct {
	Steps  int               `json:"steps"`
	Rate   float64           `json:"rate"`
	Report sim.FailureReport `json:"report"`
}

func (a *app) naiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "naive",
		Short: "Count paths on which the unprotected Euler scheme takes the square root of a negative variance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := sim.NewHestonNaive(a.hestonParams())
			if err != nil {
				return err
			}
			c := a.cfg.Contract
			points := make([]naivePoint, 0, len(a.cfg.Engine.Grid))
			for _, steps := range a.cfg.Engine.Grid {
				report, err := a.mc.ProbeDomainFailures(cmd.Context(), m, c.Spot, c.Maturity, steps, a.cfg.Engine.Paths)
				if err != nil {
					return err
				}
				points = append(points, naivePoint{Steps: steps, Rate: report.Rate(), Report: report})
			}
			return writeJSON(cmd, points)
		},
	}
}

type bsReport struct {
	ClosedForm        decimal.Decimal   `json:"closed_form"`
	MonteCarlo        sim.PricingResult `json:"monte_carlo"`
	ImpliedVolatility decimal.Decimal   `json:"implied_volatility"`
}

func (a *app) bsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bs",
		Short: "Cross-check single-step Monte Carlo against the closed-form Black-Scholes forward price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			optionType, err := types.ParseOptionType(a.cfg.Contract.OptionType)
			if err != nil {
				return err
			}
			m, err := sim.NewBlackScholes(a.blackScholesParams())
			if err != nil {
				return err
			}

			c, p := a.cfg.Contract, a.blackScholesParams()
			bsc := finance.NewBlackScholesCalculator()
			closed, err := bsc.CalculateForwardPrice(optionType,
				decimal.NewFromFloat(c.Spot), decimal.NewFromFloat(c.Strike), decimal.NewFromFloat(c.Maturity),
				decimal.NewFromFloat(p.Drift), decimal.NewFromFloat(p.Volatility))
			if err != nil {
				return err
			}

			res, err := a.mc.PriceOption(cmd.Context(), m, optionType, c.Spot, c.Strike, c.Maturity, 1, a.cfg.Engine.Paths)
			if err != nil {
				return err
			}
			iv, err := bsc.CalculateImpliedVolatility(optionType,
				decimal.NewFromFloat(c.Spot), decimal.NewFromFloat(c.Strike), decimal.NewFromFloat(c.Maturity),
				decimal.NewFromFloat(p.Drift), decimal.NewFromFloat(res.Mean))
			if err != nil {
				a.logger.WarnContext(cmd.Context(), "implied volatility inversion failed", "error", err)
			}
			return writeJSON(cmd, bsReport{
				ClosedForm:        closed.Round(6),
				MonteCarlo:        res,
				ImpliedVolatility: iv.Round(6),
			})
		},
	}
}

func (a *app) pathsCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Sample full Heston trajectories for plotting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.hestonModel()
			if err != nil {
				return err
			}
			var picker rand.Source
			if a.cfg.Engine.Seed != 0 {
				picker = rand.NewPCG(a.cfg.Engine.Seed, a.cfg.Engine.Seed^0x9e3779b97f4a7c15)
			}
			c := a.cfg.Contract
			sample, err := a.mc.SamplePaths(cmd.Context(), m, c.Spot, c.Maturity, a.cfg.Engine.Steps, a.cfg.Engine.Paths, keep, picker)
			if err != nil {
				return err
			}
			return writeJSON(cmd, sample)
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "number of trajectories to keep")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			masked, err := config.Masked(a.cfg)
			if err != nil {
				return err
			}
			return writeJSON(cmd, masked)
		},
	}
}
