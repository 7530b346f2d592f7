package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wyfcoding/stochvol/xerrors"
)

var validate = validator.New()

// BlackScholesParams Black-Scholes 模型参数.
type BlackScholesParams struct {
	Drift      float64 `mapstructure:"drift"      toml:"drift"`                      // μ
	Volatility float64 `mapstructure:"volatility" toml:"volatility" validate:"gt=0"` // σ
}

// HestonParams Heston 模型参数.
type HestonParams struct {
	Drift float64 `mapstructure:"drift" toml:"drift"`                         // μ
	Kappa float64 `mapstructure:"kappa" toml:"kappa" validate:"gte=0"`        // 均值回复速度 κ
	Theta float64 `mapstructure:"theta" toml:"theta" validate:"gte=0"`        // 长期方差 θ
	Omega float64 `mapstructure:"omega" toml:"omega" validate:"gte=0"`        // 波动率的波动率 ω
	Rho   float64 `mapstructure:"rho"   toml:"rho"   validate:"gte=-1,lte=1"` // 价格与方差的相关系数 ρ
	V0    float64 `mapstructure:"v0"    toml:"v0"    validate:"gte=0"`        // 初始方差 V₀
}

// Validate 校验 Black-Scholes 参数.
func (p BlackScholesParams) Validate() error {
	return validateParams(p)
}

// Validate 校验 Heston 参数.
func (p HestonParams) Validate() error {
	return validateParams(p)
}

func validateParams(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "parameter validation")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s=%v violates %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
	}
	return xerrors.ErrInvalidModelParam.Derive("%s", strings.Join(parts, "; "))
}

// PathState 单条路径在步与步之间传递的可变状态。
type PathState struct {
	Step     int
	LogAsset float64
	Variance float64 // 全截断格式下可以为负
}

// Asset 返回资产价格 exp(L).
func (s PathState) Asset() float64 {
	return math.Exp(s.LogAsset)
}

func validateGrid(spot, maturity float64, steps int) error {
	if !(spot > 0) || math.IsInf(spot, 0) {
		return xerrors.ErrInvalidGrid.Derive("spot=%g", spot)
	}
	if !(maturity > 0) || math.IsInf(maturity, 0) {
		return xerrors.ErrInvalidGrid.Derive("maturity=%g", maturity)
	}
	if steps < 1 {
		return xerrors.ErrInvalidGrid.Derive("steps=%d", steps)
	}
	return nil
}
