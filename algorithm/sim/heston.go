package sim

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/wyfcoding/stochvol/xerrors"
)

// Scheme 方差过程的离散格式。
type Scheme string

const (
	SchemeNaive          Scheme = "naive"           // 无保护 Euler，负方差时报定义域错误
	SchemeAbsorption     Scheme = "absorption"      // 更新前后都截断到 0
	SchemeFullTruncation Scheme = "full_truncation" // 仅在漂移/扩散项中截断
)

// ParseScheme 解析离散格式名称.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeNaive:
		return SchemeNaive, nil
	case SchemeAbsorption:
		return SchemeAbsorption, nil
	case SchemeFullTruncation, "full-truncation", "fulltruncation":
		return SchemeFullTruncation, nil
	default:
		return "", xerrors.ErrUnknownScheme.Derive("got %q", s)
	}
}

// NewHeston 按离散格式创建 Heston 模型.
func NewHeston(params HestonParams, scheme Scheme) (Model, error) {
	switch scheme {
	case SchemeNaive:
		return NewHestonNaive(params)
	case SchemeAbsorption:
		return NewHestonAbsorption(params)
	case SchemeFullTruncation:
		return NewHestonFullTruncation(params)
	default:
		return nil, xerrors.ErrUnknownScheme.Derive("got %q", scheme)
	}
}

// hestonBase 各离散格式共享的参数与对数价格转移.
type hestonBase struct {
	params HestonParams
}

func newHestonBase(params HestonParams) (hestonBase, error) {
	if err := params.Validate(); err != nil {
		return hestonBase{}, err
	}
	return hestonBase{params: params}, nil
}

func (h hestonBase) InitialVariance() float64 { return h.params.V0 }

func (h hestonBase) Correlation() float64 { return h.params.Rho }

func (h hestonBase) Steps(requested int) int { return requested }

func (h hestonBase) StepLogAsset(logS, used, dt, zL float64) float64 {
	return logEulerStep(logS, h.params.Drift, used, dt, zL)
}

// Params 返回模型参数.
func (h hestonBase) Params() HestonParams { return h.params }

// cir 离散 CIR 更新 (1 − κΔt)·V + κΔt·θ + ω·√(V·Δt)·z，调用方保证 v ≥ 0。
func (h hestonBase) cir(v, dt, z float64) float64 {
	p := h.params
	return (1-p.Kappa*dt)*v + p.Kappa*dt*p.Theta + p.Omega*math.Sqrt(v*dt)*z
}

// HestonNaive 无保护 Euler 格式，仅用于观察其失效。
type HestonNaive struct {
	hestonBase
}

// NewHestonNaive 创建无保护格式的 Heston 模型.
func NewHestonNaive(params HestonParams) (*HestonNaive, error) {
	base, err := newHestonBase(params)
	if err != nil {
		return nil, err
	}
	return &HestonNaive{hestonBase: base}, nil
}

func (h *HestonNaive) Name() string { return "heston_naive" }

// StepVariance 上一步方差为负时返回 ErrNegativeVariance，不做任何截断.
func (h *HestonNaive) StepVariance(v, dt, zV float64) (float64, float64, error) {
	if v < 0 {
		return 0, 0, xerrors.ErrNegativeVariance.Derive("sqrt of variance %g", v).WithContext("variance", v)
	}
	return h.cir(v, dt, zV), v, nil
}

func (h *HestonNaive) Fork() Model { return h }

func (h *HestonNaive) Join(Model) {}

// HestonAbsorption 吸收格式：V_used = max(V, 0)，结果再次截断到 0。
type HestonAbsorption struct {
	hestonBase
	fixes atomic.Int64
}

// NewHestonAbsorption 创建吸收格式的 Heston 模型，修正计数从 0 开始.
func NewHestonAbsorption(params HestonParams) (*HestonAbsorption, error) {
	base, err := newHestonBase(params)
	if err != nil {
		return nil, err
	}
	return &HestonAbsorption{hestonBase: base}, nil
}

func (h *HestonAbsorption) Name() string { return "heston_absorption" }

func (h *HestonAbsorption) StepVariance(v, dt, zV float64) (float64, float64, error) {
	used := max(v, 0)
	raw := h.cir(used, dt, zV)
	if raw < 0 {
		if v > 0 {
			h.fixes.Add(1)
		}
		raw = 0
	}
	return raw, used, nil
}

// NegativeVarianceFixes 上一步方差为正、但未截断结果为负的累计次数.
func (h *HestonAbsorption) NegativeVarianceFixes() int64 {
	return h.fixes.Load()
}

func (h *HestonAbsorption) Fork() Model {
	return &HestonAbsorption{hestonBase: h.hestonBase}
}

func (h *HestonAbsorption) Join(other Model) {
	if o, ok := other.(*HestonAbsorption); ok && o != h {
		h.fixes.Add(o.fixes.Load())
	}
}

// HestonFullTruncation 全截断格式：仅在漂移/扩散项中使用 max(V, 0)，
// 被跟踪的原始方差可以为负并持续为负。
type HestonFullTruncation struct {
	hestonBase
}

// NewHestonFullTruncation 创建全截断格式的 Heston 模型.
func NewHestonFullTruncation(params HestonParams) (*HestonFullTruncation, error) {
	base, err := newHestonBase(params)
	if err != nil {
		return nil, err
	}
	return &HestonFullTruncation{hestonBase: base}, nil
}

func (h *HestonFullTruncation) Name() string { return "heston_full_truncation" }

func (h *HestonFullTruncation) StepVariance(v, dt, zV float64) (float64, float64, error) {
	p := h.params
	used := max(v, 0)
	next := v - p.Kappa*dt*(used-p.Theta) + p.Omega*math.Sqrt(used*dt)*zV
	return next, used, nil
}

func (h *HestonFullTruncation) Fork() Model { return h }

func (h *HestonFullTruncation) Join(Model) {}
