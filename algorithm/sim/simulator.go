package sim

import (
	"math"

	"github.com/wyfcoding/stochvol/xerrors"
)

// PathSimulator 驱动单个模型在均匀时间网格上逐步演化。
// 不是并发安全的：随机源与模型的路径累计量都只属于调用方 goroutine。
type PathSimulator struct {
	src Source
}

// NewPathSimulator 创建路径模拟器.
func NewPathSimulator(src Source) *PathSimulator {
	return &PathSimulator{src: src}
}

// SimulateTerminal 模拟一条路径并返回到期时的资产价格 exp(L_N)。
func (s *PathSimulator) SimulateTerminal(m Model, spot, maturity float64, steps int) (float64, error) {
	final, err := s.walk(m, spot, maturity, steps, nil)
	if err != nil {
		return 0, err
	}
	return final.Asset(), nil
}

// SimulatePath 模拟一条路径并返回包含起点在内的完整轨迹。
func (s *PathSimulator) SimulatePath(m Model, spot, maturity float64, steps int) ([]PathState, error) {
	trajectory := make([]PathState, 0, m.Steps(steps)+1)
	_, err := s.walk(m, spot, maturity, steps, func(st PathState) {
		trajectory = append(trajectory, st)
	})
	if err != nil {
		return nil, err
	}
	return trajectory, nil
}

func (s *PathSimulator) walk(m Model, spot, maturity float64, steps int, visit func(PathState)) (PathState, error) {
	if m == nil {
		return PathState{}, errNilModel()
	}
	if err := validateGrid(spot, maturity, steps); err != nil {
		return PathState{}, err
	}

	n := m.Steps(steps)
	dt := maturity / float64(n)
	rho := m.Correlation()
	state := PathState{LogAsset: math.Log(spot), Variance: m.InitialVariance()}
	if visit != nil {
		visit(state)
	}

	observer, observed := m.(PathObserver)
	if observed {
		observer.BeginPath(n)
	}
	for i := 1; i <= n; i++ {
		zV, zL := Correlate(rho, s.src.NormFloat64(), s.src.NormFloat64())
		next, used, err := m.StepVariance(state.Variance, dt, zV)
		if err != nil {
			return state, annotateStep(err, i, n)
		}
		state.LogAsset = m.StepLogAsset(state.LogAsset, used, dt, zL)
		state.Variance = next
		state.Step = i
		if visit != nil {
			visit(state)
		}
	}
	if observed {
		observer.EndPath()
	}
	return state, nil
}

func annotateStep(err error, step, steps int) error {
	if e, ok := xerrors.FromError(err); ok {
		return e.WithContext("step", step).WithContext("steps", steps)
	}
	return err
}

func errNilModel() error {
	return xerrors.ErrInvalidInput.Derive("model is nil")
}
