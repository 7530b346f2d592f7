package sim

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/wyfcoding/stochvol/algorithm/types"
	"github.com/wyfcoding/stochvol/logging"
	"github.com/wyfcoding/stochvol/metrics"
	"github.com/wyfcoding/stochvol/tracing"
	"github.com/wyfcoding/stochvol/xerrors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// cancelCheckInterval 每个 worker 每模拟这么多条路径检查一次上下文.
const cancelCheckInterval = 1024

// PricingResult 一次定价调用的样本均值与均值标准误，每次调用从完整样本重新计算。
type PricingResult struct {
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
	Paths  int     `json:"paths"`
	Steps  int     `json:"steps"` // 模型实际使用的步数
}

// Payoff 到期收益函数。
type Payoff func(terminal float64) float64

// CallPayoff max(S_T − K, 0)。
func CallPayoff(strike float64) Payoff {
	return func(terminal float64) float64 {
		return types.OptionTypeCall.Payoff(terminal, strike)
	}
}

// PutPayoff max(K − S_T, 0)。
func PutPayoff(strike float64) Payoff {
	return func(terminal float64) float64 {
		return types.OptionTypePut.Payoff(terminal, strike)
	}
}

// FailureReport 朴素格式失效研究的结果。
type FailureReport struct {
	Paths           int     `json:"paths"`
	Failures        int     `json:"failures"`
	MeanFailureStep float64 `json:"mean_failure_step"` // 失效路径上首次出错步的平均值
}

// Rate 失效路径占比。
func (r FailureReport) Rate() float64 {
	if r.Paths == 0 {
		return 0
	}
	return float64(r.Failures) / float64(r.Paths)
}

// Option MonteCarlo 的可选配置.
type Option func(*MonteCarlo)

// WithSources 设置随机源工厂，worker i 使用流编号 i。
func WithSources(f SourceFactory) Option {
	return func(mc *MonteCarlo) {
		if f != nil {
			mc.sources = f
		}
	}
}

// WithWorkers 设置并行 worker 数，小于 1 时使用 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(mc *MonteCarlo) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		mc.workers = n
	}
}

// WithLogger 设置结构化日志记录器，nil 时保留默认记录器。
func WithLogger(l *logging.Logger) Option {
	return func(mc *MonteCarlo) {
		if l != nil {
			mc.logger = l
		}
	}
}

// WithMetrics 设置定价指标，nil 表示不采集。
func WithMetrics(m *metrics.PricingMetrics) Option {
	return func(mc *MonteCarlo) {
		mc.metrics = m
	}
}

// MonteCarlo 朴素蒙特卡洛定价器：不做任何方差缩减。
// 路径按连续区间切分给各 worker，每个 worker 持有独立的随机流与 Fork 出的模型实例，
// 结束后无论成败都 Join 回调用方的模型。
type MonteCarlo struct {
	sources SourceFactory
	workers int
	logger  *logging.Logger
	metrics *metrics.PricingMetrics
}

// NewMonteCarlo 创建定价器，默认使用系统随机源与 GOMAXPROCS 个 worker。
func NewMonteCarlo(opts ...Option) *MonteCarlo {
	mc := &MonteCarlo{
		sources: System(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(mc)
	}
	if mc.logger == nil {
		mc.logger = logging.Default()
	}
	return mc
}

// PriceCall 欧式看涨期权的远期（未贴现）价格.
func (mc *MonteCarlo) PriceCall(ctx context.Context, m Model, spot, strike, maturity float64, steps, paths int) (PricingResult, error) {
	return mc.Price(ctx, m, CallPayoff(strike), spot, maturity, steps, paths)
}

// PricePut 欧式看跌期权的远期（未贴现）价格.
func (mc *MonteCarlo) PricePut(ctx context.Context, m Model, spot, strike, maturity float64, steps, paths int) (PricingResult, error) {
	return mc.Price(ctx, m, PutPayoff(strike), spot, maturity, steps, paths)
}

// PriceOption 按期权类型定价.
func (mc *MonteCarlo) PriceOption(ctx context.Context, m Model, optionType types.OptionType, spot, strike, maturity float64, steps, paths int) (PricingResult, error) {
	switch optionType {
	case types.OptionTypeCall:
		return mc.PriceCall(ctx, m, spot, strike, maturity, steps, paths)
	case types.OptionTypePut:
		return mc.PricePut(ctx, m, spot, strike, maturity, steps, paths)
	default:
		return PricingResult{}, xerrors.ErrInvalidOptionType.Derive("got %q", optionType)
	}
}

// Price 模拟 paths 条到期价格并对收益求样本均值与标准误。
// 任何错误（包括朴素格式的定义域错误）都会中止整个调用，不返回部分结果。
func (mc *MonteCarlo) Price(ctx context.Context, m Model, payoff Payoff, spot, maturity float64, steps, paths int) (PricingResult, error) {
	if err := validateCall(m, spot, maturity, steps, paths); err != nil {
		return PricingResult{}, err
	}
	if payoff == nil {
		return PricingResult{}, xerrors.ErrInvalidInput.Derive("payoff is nil")
	}

	ctx, span := tracing.StartSpan(ctx, "sim.MonteCarlo.Price")
	defer span.End()
	tracing.AddTag(ctx, "model", m.Name())
	tracing.AddTag(ctx, "steps", steps)
	tracing.AddTag(ctx, "paths", paths)

	mc.logger.DebugContext(ctx, "monte carlo pricing started",
		"model", m.Name(), "spot", spot, "maturity", maturity, "steps", steps, "paths", paths)
	start := time.Now()

	samples := make([]float64, paths)
	err := mc.fanOut(ctx, m, paths, func(ps *PathSimulator, model Model, i int) error {
		terminal, err := ps.SimulateTerminal(model, spot, maturity, steps)
		if err != nil {
			return err
		}
		samples[i] = payoff(terminal)
		return nil
	})
	if err != nil {
		if xerrors.TypeOf(err) == xerrors.ErrDomain {
			mc.metrics.RecordDomainErrors(m.Name(), 1)
			mc.logger.WarnContext(ctx, "monte carlo pricing aborted by domain error", "model", m.Name(), "error", err)
		}
		tracing.SetError(ctx, err)
		return PricingResult{}, err
	}

	mean, std := stat.MeanStdDev(samples, nil)
	if !isFinite(mean) || !isFinite(std) {
		err := xerrors.ErrNumericOverflow.Derive("payoff mean=%g std=%g over %d paths", mean, std, paths).
			WithContext("model", m.Name())
		mc.logger.WarnContext(ctx, "monte carlo pricing overflowed", "model", m.Name(), "steps", steps, "paths", paths)
		tracing.SetError(ctx, err)
		return PricingResult{}, err
	}
	result := PricingResult{
		Mean:   mean,
		StdErr: std / math.Sqrt(float64(paths)),
		Paths:  paths,
		Steps:  m.Steps(steps),
	}

	elapsed := time.Since(start)
	mc.record(m, paths, elapsed)
	tracing.AddTag(ctx, "mean", result.Mean)
	tracing.AddTag(ctx, "std_err", result.StdErr)
	mc.logger.InfoContext(ctx, "monte carlo pricing finished",
		"model", m.Name(), "mean", result.Mean, "std_err", result.StdErr, "duration", elapsed)
	return result, nil
}

// ProbeDomainFailures 研究模式：统计有多少条路径触发数值定义域错误，而不是在第一次出错时中止。
// 其他错误仍然中止调用。
func (mc *MonteCarlo) ProbeDomainFailures(ctx context.Context, m Model, spot, maturity float64, steps, paths int) (FailureReport, error) {
	if err := validateCall(m, spot, maturity, steps, paths); err != nil {
		return FailureReport{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "sim.MonteCarlo.ProbeDomainFailures")
	defer span.End()
	tracing.AddTag(ctx, "model", m.Name())
	tracing.AddTag(ctx, "steps", steps)
	tracing.AddTag(ctx, "paths", paths)
	start := time.Now()

	// 0 表示该路径完成，否则为首次出错的步
	failedAt := make([]int, paths)
	err := mc.fanOut(ctx, m, paths, func(ps *PathSimulator, model Model, i int) error {
		_, err := ps.SimulateTerminal(model, spot, maturity, steps)
		if err == nil {
			return nil
		}
		e, ok := xerrors.FromError(err)
		if !ok || e.Type != xerrors.ErrDomain {
			return err
		}
		step, _ := e.Context["step"].(int)
		failedAt[i] = max(step, 1)
		return nil
	})
	if err != nil {
		tracing.SetError(ctx, err)
		return FailureReport{}, err
	}

	report := FailureReport{Paths: paths}
	stepSum := 0
	for _, s := range failedAt {
		if s > 0 {
			report.Failures++
			stepSum += s
		}
	}
	if report.Failures > 0 {
		report.MeanFailureStep = float64(stepSum) / float64(report.Failures)
	}

	mc.metrics.RecordDomainErrors(m.Name(), report.Failures)
	mc.record(m, paths, time.Since(start))
	tracing.AddTag(ctx, "failures", report.Failures)
	mc.logger.InfoContext(ctx, "domain failure probe finished",
		"model", m.Name(), "steps", steps, "paths", paths, "failures", report.Failures, "rate", report.Rate())
	return report, nil
}

// fanOut 把 [0, paths) 切成连续区间并发执行 body。
// 不支持 Forker 的模型只用一个 worker；Fork 出的实例在返回前总是被 Join。
func (mc *MonteCarlo) fanOut(ctx context.Context, m Model, paths int, body func(ps *PathSimulator, model Model, i int) error) error {
	workers := max(1, min(mc.workers, paths))
	forker, canFork := m.(Forker)
	if !canFork {
		workers = 1
	}

	models := make([]Model, workers)
	models[0] = m
	for w := 1; w < workers; w++ {
		models[w] = forker.Fork()
	}
	defer func() {
		for w := 1; w < workers; w++ {
			forker.Join(models[w])
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	chunk := (paths + workers - 1) / workers
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, paths)
		if lo >= hi {
			continue
		}
		ps := NewPathSimulator(mc.sources(uint64(w)))
		model := models[w]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return xerrors.ErrSimulationCanceled.Derive("completed %d of %d paths in worker", i-lo, hi-lo).WithCause(err)
					}
				}
				if err := body(ps, model, i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (mc *MonteCarlo) record(m Model, paths int, elapsed time.Duration) {
	mc.metrics.ObservePricing(m.Name(), paths, elapsed)
	if c, ok := m.(NegativeVarianceCounter); ok {
		mc.metrics.SetNegativeVarianceFixes(m.Name(), c.NegativeVarianceFixes())
	}
	if r, ok := m.(CorrelationReporter); ok {
		mc.metrics.SetRealizedCorrelation(m.Name(), r.AverageCorrelation())
	}
}

func validateCall(m Model, spot, maturity float64, steps, paths int) error {
	if m == nil {
		return errNilModel()
	}
	if paths < 2 {
		return xerrors.ErrInvalidPathCount.Derive("paths=%d", paths)
	}
	return validateGrid(spot, maturity, steps)
}

func isFinite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}
