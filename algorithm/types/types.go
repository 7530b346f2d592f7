package types

import (
	"strings"

	"github.com/wyfcoding/stochvol/xerrors"
)

// OptionType 定义期权类型。
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType 解析大小写不敏感的期权类型。
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, nil
	case OptionTypePut:
		return OptionTypePut, nil
	default:
		return "", xerrors.ErrInvalidOptionType.Derive("got %q", s)
	}
}

// Payoff 到期收益。
func (t OptionType) Payoff(terminal, strike float64) float64 {
	if t == OptionTypePut {
		return max(strike-terminal, 0)
	}
	return max(terminal-strike, 0)
}
