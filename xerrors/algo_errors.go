package xerrors

var (
	// ErrInvalidInput 输入格式错误。
	ErrInvalidInput = New(ErrInvalidArg, 400002, "invalid input", "check your input parameters", nil)
	// ErrInvalidOptionType 无效的期权类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400004, "invalid option type", "supported types: CALL, PUT", nil)
	// ErrInvalidModelParam 模型参数越界（σ ≤ 0, κ < 0, ω < 0, θ < 0, V₀ < 0, |ρ| > 1）。
	ErrInvalidModelParam = New(ErrInvalidArg, 400101, "invalid model parameter", "model parameters are out of range", nil)
	// ErrInvalidGrid 时间网格非法（到期日、步数或初始价格）。
	ErrInvalidGrid = New(ErrInvalidArg, 400102, "invalid simulation grid", "spot and maturity must be positive, steps at least 1", nil)
	// ErrInvalidPathCount 路径数不足以估计标准误。
	ErrInvalidPathCount = New(ErrInvalidArg, 400103, "invalid path count", "at least 2 paths are required", nil)
	// ErrUnknownScheme 未知的方差离散格式。
	ErrUnknownScheme = New(ErrInvalidArg, 400104, "unknown discretization scheme", "supported schemes: naive, absorption, full_truncation", nil)
	// ErrNegativeVariance 朴素 Euler 格式中对负方差开平方。
	ErrNegativeVariance = New(ErrDomain, 422001, "negative variance", "square root of a negative variance in the unprotected scheme", nil)
	// ErrNumericOverflow 模拟结果超出 float64 可表示范围（±Inf 或 NaN）。
	ErrNumericOverflow = New(ErrDomain, 422002, "numeric overflow", "simulated values are not finite in float64", nil)
	// ErrMathConvergence 数学计算未收敛。
	ErrMathConvergence = New(ErrInternal, 500002, "math convergence failed", "algorithm failed to converge", nil)
	// ErrSimulationCanceled 定价调用被上下文取消。
	ErrSimulationCanceled = New(ErrCanceled, 499001, "simulation canceled", "context canceled before all paths completed", nil)
)
