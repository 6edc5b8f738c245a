package docstore

import (
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Scalar normalizes a document value to what backends store: optional strings
// collapse to string or nil, decimals become float64.
func Scalar(v any) any {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case decimal.Decimal:
		return core.AmountToFloat(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return core.AmountToFloat(*x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return v
	}
}

// SumPrecision is the number of significant digits a stored double keeps when
// it enters a grouped sum. MongoDB's $toDecimal converts doubles the same way.
const SumPrecision = 15

// DecimalFromDouble converts one stored double for summing. Every backend sums
// these per-row values, so equal input gives equal totals.
func DecimalFromDouble(f float64) decimal.Decimal {
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'g', SumPrecision, 64))
	if err != nil {
		return decimal.Zero
	}
	return d
}
