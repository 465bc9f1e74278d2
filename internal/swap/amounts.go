package swap

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// BaseUnits 将人类可读金额换算为代币最小单位，超出精度的部分截断。
func BaseUnits(amount decimal.Decimal, decimals int) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("swap: 金额必须大于0: %s", amount)
	}
	if decimals < 0 {
		return 0, fmt.Errorf("swap: 精度不能为负: %d", decimals)
	}

	shifted := amount.Shift(int32(decimals)).Truncate(0)
	if shifted.Sign() <= 0 {
		return 0, fmt.Errorf("swap: 金额 %s 低于最小单位", amount)
	}
	if shifted.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, fmt.Errorf("swap: 金额 %s 超出 uint64 范围", amount)
	}

	return shifted.BigInt().Uint64(), nil
}

// FromBaseUnits 将最小单位数量换算回人类可读金额。
func FromBaseUnits(v uint64, decimals int) decimal.Decimal {
	return decimal.NewFromUint64(v).Shift(int32(-decimals))
}

// LamportsToSOL 将 lamports 换算为 SOL，用于展示手续费。
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}
