package sim

// BlackScholes 对数正态模型：方差恒为 σ²，单步即精确。
type BlackScholes struct {
	params   BlackScholesParams
	variance float64
}

// NewBlackScholes 创建 Black-Scholes 模型，σ ≤ 0 时返回配置错误。
func NewBlackScholes(params BlackScholesParams) (*BlackScholes, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &BlackScholes{
		params:   params,
		variance: params.Volatility * params.Volatility,
	}, nil
}

func (b *BlackScholes) Name() string { return "black_scholes" }

func (b *BlackScholes) InitialVariance() float64 { return b.variance }

func (b *BlackScholes) Correlation() float64 { return 0 }

// Steps 对数正态模型没有离散误差，总是只走一步.
func (b *BlackScholes) Steps(int) int { return 1 }

func (b *BlackScholes) StepVariance(_, _, _ float64) (float64, float64, error) {
	return b.variance, b.variance, nil
}

func (b *BlackScholes) StepLogAsset(logS, used, dt, zL float64) float64 {
	return logEulerStep(logS, b.params.Drift, used, dt, zL)
}

// Params 返回模型参数.
func (b *BlackScholes) Params() BlackScholesParams { return b.params }

func (b *BlackScholes) Fork() Model { return b }

func (b *BlackScholes) Join(Model) {}
