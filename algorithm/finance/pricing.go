// Package finance - 期权定价闭式解（Black-Scholes 模型），用于校验蒙特卡洛结果。
package finance

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/stochvol/algorithm/types"
	"github.com/wyfcoding/stochvol/xerrors"
)

// BlackScholesCalculator Black-Scholes 远期（不折现）期权定价计算器。
// 漂移 μ 同时作为远期增长率，价格为 E[max(S_T − K, 0)]。
type BlackScholesCalculator struct{}

// NewBlackScholesCalculator 创建 Black-Scholes 计算器。
func NewBlackScholesCalculator() *BlackScholesCalculator {
	return &BlackScholesCalculator{}
}

// CalculateForwardCallPrice 计算看涨期权远期价格。
func (bsc *BlackScholesCalculator) CalculateForwardCallPrice(spot, strike, expiry, drift, vol decimal.Decimal) (decimal.Decimal, error) {
	if err := validateInputs(spot, strike, expiry, vol); err != nil {
		return decimal.Zero, err
	}
	price := ForwardCall(spot.InexactFloat64(), strike.InexactFloat64(), expiry.InexactFloat64(), drift.InexactFloat64(), vol.InexactFloat64())
	return fromFloat(price)
}

// CalculateForwardPutPrice 计算看跌期权远期价格。
func (bsc *BlackScholesCalculator) CalculateForwardPutPrice(spot, strike, expiry, drift, vol decimal.Decimal) (decimal.Decimal, error) {
	if err := validateInputs(spot, strike, expiry, vol); err != nil {
		return decimal.Zero, err
	}
	price := ForwardPut(spot.InexactFloat64(), strike.InexactFloat64(), expiry.InexactFloat64(), drift.InexactFloat64(), vol.InexactFloat64())
	return fromFloat(price)
}

// CalculateForwardPrice 按期权类型计算远期价格。
func (bsc *BlackScholesCalculator) CalculateForwardPrice(optionType types.OptionType, spot, strike, expiry, drift, vol decimal.Decimal) (decimal.Decimal, error) {
	switch optionType {
	case types.OptionTypeCall:
		return bsc.CalculateForwardCallPrice(spot, strike, expiry, drift, vol)
	case types.OptionTypePut:
		return bsc.CalculateForwardPutPrice(spot, strike, expiry, drift, vol)
	default:
		return decimal.Zero, xerrors.ErrInvalidOptionType
	}
}

// ForwardCall 浮点版本的远期看涨价格 S·e^{μT}·N(d1) − K·N(d2)。
func ForwardCall(s, k, t, mu, sigma float64) float64 {
	d1, d2 := d1d2(s, k, t, mu, sigma)
	return s*math.Exp(mu*t)*normCDF(d1) - k*normCDF(d2)
}

// ForwardPut 浮点版本的远期看跌价格 K·N(−d2) − S·e^{μT}·N(−d1)。
func ForwardPut(s, k, t, mu, sigma float64) float64 {
	d1, d2 := d1d2(s, k, t, mu, sigma)
	return k*normCDF(-d2) - s*math.Exp(mu*t)*normCDF(-d1)
}

func d1d2(s, k, t, mu, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (mu+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

func validateInputs(spot, strike, expiry, vol decimal.Decimal) error {
	if spot.LessThanOrEqual(decimal.Zero) || strike.LessThanOrEqual(decimal.Zero) || expiry.LessThanOrEqual(decimal.Zero) || vol.LessThanOrEqual(decimal.Zero) {
		return xerrors.ErrInvalidInput
	}
	return nil
}

func fromFloat(price float64) (decimal.Decimal, error) {
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return decimal.Zero, xerrors.ErrNumericOverflow.Derive("forward price %g", price)
	}
	return decimal.NewFromFloat(price), nil
}

func normCDF(x float64) float64 {
	return (1.0 + math.Erf(x/math.Sqrt2)) / 2.0
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// CalculateImpliedVolatility 由远期价格反解隐含波动率（Newton 迭代）。
func (bsc *BlackScholesCalculator) CalculateImpliedVolatility(optionType types.OptionType, spot, strike, expiry, drift, price decimal.Decimal) (decimal.Decimal, error) {
	s := spot.InexactFloat64()
	k := strike.InexactFloat64()
	t := expiry.InexactFloat64()
	mu := drift.InexactFloat64()
	target := price.InexactFloat64()
	if s <= 0 || k <= 0 || t <= 0 || target <= 0 {
		return decimal.Zero, xerrors.ErrInvalidInput
	}
	if optionType != types.OptionTypeCall && optionType != types.OptionTypePut {
		return decimal.Zero, xerrors.ErrInvalidOptionType
	}

	sigma := 0.3
	const (
		tolerance     = 1e-8
		maxIterations = 100
	)
	for range maxIterations {
		var model float64
		if optionType == types.OptionTypeCall {
			model = ForwardCall(s, k, t, mu, sigma)
		} else {
			model = ForwardPut(s, k, t, mu, sigma)
		}
		d1, _ := d1d2(s, k, t, mu, sigma)
		vega := s * math.Exp(mu*t) * normPDF(d1) * math.Sqrt(t)
		diff := model - target
		if math.Abs(diff) < tolerance {
			return decimal.NewFromFloat(sigma), nil
		}
		if vega == 0 {
			break
		}
		sigma -= diff / vega
		if sigma <= 0 {
			sigma = 0.001
		}
	}
	return decimal.Zero, xerrors.ErrMathConvergence
}
