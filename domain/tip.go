package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

type TipKind string

const (
	TipNone    TipKind = "none"
	TipPercent TipKind = "percent"
	TipAmount  TipKind = "amount"
)

// TipChoice is a preset percentage, a custom amount, or an explicit "no tip".
type TipChoice struct {
	Kind    TipKind         `json:"kind"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

var ErrInvalidTip = errors.New("invalid tip choice")

func NoTip() TipChoice {
	return TipChoice{Kind: TipNone}
}

func PercentTip(pct int64) TipChoice {
	return TipChoice{Kind: TipPercent, Percent: decimal.NewFromInt(pct)}
}

func AmountTip(amount decimal.Decimal) TipChoice {
	return TipChoice{Kind: TipAmount, Amount: amount}
}

func (t TipChoice) Validate() error {
	switch t.Kind {
	case TipNone:
		return nil
	case TipPercent:
		if t.Percent.IsNegative() {
			return ErrInvalidTip
		}
		return nil
	case TipAmount:
		if t.Amount.IsNegative() {
			return ErrInvalidTip
		}
		return nil
	default:
		return ErrInvalidTip
	}
}
