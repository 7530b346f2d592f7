package sim

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// ReservoirSampler 蓄水池采样：从未知长度的流中等概率保留 k 个元素.
type ReservoirSampler[T any] struct {
	samples []T
	count   int
	k       int
	rng     *mrand.Rand
}

// NewReservoirSampler 创建一个新的 ReservoirSampler 实例，src 为 nil 时使用 crypto/rand.
func NewReservoirSampler[T any](k int, src mrand.Source) *ReservoirSampler[T] {
	if src == nil {
		src = cryptoUint64{}
	}
	return &ReservoirSampler[T]{
		k:       max(k, 0),
		samples: make([]T, 0, max(k, 0)),
		rng:     mrand.New(src),
	}
}

// Observe 处理一个新到达的元素.
func (s *ReservoirSampler[T]) Observe(item T) {
	s.count++

	if len(s.samples) < s.k {
		s.samples = append(s.samples, item)
		return
	}
	if j := s.rng.IntN(s.count); j < s.k {
		s.samples[j] = item
	}
}

// GetSamples 获取当前池中的所有样本.
func (s *ReservoirSampler[T]) GetSamples() []T {
	return s.samples
}

// Count 已观察的元素个数.
func (s *ReservoirSampler[T]) Count() int {
	return s.count
}

// Reset 重置采样器.
func (s *ReservoirSampler[T]) Reset() {
	s.count = 0
	s.samples = s.samples[:0]
}

type cryptoUint64 struct{}

func (cryptoUint64) Uint64() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}
