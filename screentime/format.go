package screentime

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// Format renders minutes as h:mm, e.g. 90 -> "1:30", 9 -> "0:09",
// -20 -> "-0:20".
func (m Minutes) Format() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d:%02d", sign, v/60, v%60)
}

// Hours converts minutes to hours rounded to two decimal places.
func (m Minutes) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).DivRound(sixty, 2)
}

// String implements fmt.Stringer.
func (m Minutes) String() string {
	return m.Format()
}
