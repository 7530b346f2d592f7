package sim

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source 随机增量源：每次调用返回一个独立的标准正态样本。
// *rand.Rand 天然满足该接口。
type Source interface {
	NormFloat64() float64
}

// SourceFactory 按流编号创建互相独立的随机源，供并行 worker 使用。
type SourceFactory func(stream uint64) Source

// normalSource 基于 gonum 标准正态分布与 PCG 发生器的可复现随机源.
type normalSource struct {
	dist distuv.Normal
}

// NewSeededSource 创建固定种子的随机源，同一 (seed, stream) 产生相同序列。
func NewSeededSource(seed, stream uint64) Source {
	return &normalSource{
		dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, stream)},
	}
}

func (s *normalSource) NormFloat64() float64 {
	return s.dist.Rand()
}

// Seeded 返回固定种子的随机源工厂（测试与可复现研究）。
func Seeded(seed uint64) SourceFactory {
	return func(stream uint64) Source {
		return NewSeededSource(seed, stream)
	}
}

// System 返回基于 crypto/rand 的系统随机源工厂（生产环境）。
func System() SourceFactory {
	return func(uint64) Source {
		return cryptoSource{}
	}
}

// cryptoSource 使用 Box-Muller 变换从 crypto/rand 产生正态分布随机数.
type cryptoSource struct{}

func (cryptoSource) NormFloat64() float64 {
	u1 := cryptoFloat64()
	u2 := cryptoFloat64()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// cryptoFloat64 生成 (0, 1] 区间内 53 位精度的均匀随机数.
func cryptoFloat64() float64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	i := binary.LittleEndian.Uint64(b[:])
	return float64(i&(1<<53-1)+1) / (1 << 53)
}

// Correlate 由两个独立标准正态样本构造相关增量：
// zV = z1, zL = ρ·z1 + √(1−ρ²)·z2。
func Correlate(rho, z1, z2 float64) (zV, zL float64) {
	return z1, rho*z1 + math.Sqrt(1-rho*rho)*z2
}
