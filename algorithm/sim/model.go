// Package sim - 随机波动率模型的路径模拟、离散格式与蒙特卡洛定价.
package sim

import "math"

// Model 随机模型：封装模型参数以及每个随机因子的单步转移规则。
// 路径模拟器在每一步先调用 StepVariance，再用其返回的 used 调用 StepLogAsset。
type Model interface {
	// Name 模型与离散格式名称，用于日志与指标标签。
	Name() string
	// InitialVariance 路径起点方差 V₀。
	InitialVariance() float64
	// Correlation 价格与方差增量的理论瞬时相关系数 ρ。
	Correlation() float64
	// Steps 实际使用的步数；无离散误差的模型可以收缩为 1。
	Steps(requested int) int
	// StepVariance 方差转移 V' = f(V, Δt, zV)，used 为本步漂移/扩散项中使用的方差。
	StepVariance(v, dt, zV float64) (next, used float64, err error)
	// StepLogAsset 对数价格转移 L' = L + (μ − ½·used)Δt + √(used·Δt)·zL。
	StepLogAsset(logS, used, dt, zL float64) float64
}

// PathObserver 可选能力：在每条路径开始与结束时收到通知。
type PathObserver interface {
	BeginPath(steps int)
	EndPath()
}

// Forker 可选能力：为并行 worker 复制一个零状态实例，并在结束后合并其计数。
// 无状态模型可以直接返回自身。
type Forker interface {
	Fork() Model
	Join(other Model)
}

// NegativeVarianceCounter 暴露吸收格式的负方差修正次数。
type NegativeVarianceCounter interface {
	NegativeVarianceFixes() int64
}

// CorrelationReporter 暴露相关性泄漏诊断结果。
type CorrelationReporter interface {
	AverageCorrelation() float64
	Target() float64
}

func logEulerStep(logS, mu, used, dt, zL float64) float64 {
	return logS + (mu-0.5*used)*dt + math.Sqrt(used*dt)*zL
}
