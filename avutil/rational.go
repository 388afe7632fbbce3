package avutil

import (
	"fmt"
	"math"
	"math/big"
)

// Rational is a fraction as used by FFmpeg (AVRational).
type Rational struct {
	Num int32
	Den int32
}

// NewRational creates a Rational.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}
}

// Float64 converts the rational to a float64. Returns 0 if the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// IsZero reports whether the rational is zero or unset.
func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Mul multiplies two rationals.
func (r Rational) Mul(other Rational) Rational {
	return Rational{Num: r.Num * other.Num, Den: r.Den * other.Den}.Reduce()
}

// Div divides two rationals.
func (r Rational) Div(other Rational) Rational {
	return r.Mul(other.Invert())
}

// Cmp compares two rationals.
// Returns -1 if r < other, 0 if r == other, 1 if r > other.
func (r Rational) Cmp(other Rational) int {
	left := int64(r.Num) * int64(other.Den)
	right := int64(other.Num) * int64(r.Den)
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	}
	return 0
}

// Reduce reduces the rational to lowest terms.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	g := gcd(abs(r.Num), abs(r.Den))
	if g == 0 {
		return r
	}
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

func gcd(a, b int32) int32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// Common time bases.
var (
	TimeBaseMicro = NewRational(1, 1000000) // AV_TIME_BASE_Q
	TimeBaseMilli = NewRational(1, 1000)
	TimeBaseMPEG  = NewRational(1, 90000)
)

// NoPTS is AV_NOPTS_VALUE.
const NoPTS int64 = math.MinInt64

// CompareTS compares a (in tbA) with b (in tbB) like av_compare_ts.
// Returns -1 if a is earlier, 1 if later, 0 if equal.
func CompareTS(a int64, tbA Rational, b int64, tbB Rational) int {
	// a*tbA.Num*tbB.Den vs b*tbB.Num*tbA.Den
	left, lok := mul3(a, int64(tbA.Num), int64(tbB.Den))
	right, rok := mul3(b, int64(tbB.Num), int64(tbA.Den))
	if lok && rok {
		switch {
		case left < right:
			return -1
		case left > right:
			return 1
		}
		return 0
	}
	l := new(big.Int).Mul(big.NewInt(a), big.NewInt(int64(tbA.Num)))
	l.Mul(l, big.NewInt(int64(tbB.Den)))
	r := new(big.Int).Mul(big.NewInt(b), big.NewInt(int64(tbB.Num)))
	r.Mul(r, big.NewInt(int64(tbA.Den)))
	return l.Cmp(r)
}

// mul3 multiplies three values, reporting false on int64 overflow.
func mul3(a, b, c int64) (int64, bool) {
	ab, ok := mul2(a, b)
	if !ok {
		return 0, false
	}
	return mul2(ab, c)
}

func mul2(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

// RescaleQ converts v from time base from to time base to, rounding to
// nearest with halfway cases away from zero (av_rescale_q). NoPTS is kept.
func RescaleQ(v int64, from, to Rational) int64 {
	if v == NoPTS {
		return NoPTS
	}
	if from == to || from.Den == 0 || to.Num == 0 {
		return v
	}
	num := new(big.Int).Mul(big.NewInt(v), big.NewInt(int64(from.Num)*int64(to.Den)))
	den := big.NewInt(int64(from.Den) * int64(to.Num))
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	half := new(big.Int).Rsh(den, 1)
	if num.Sign() >= 0 {
		num.Add(num, half)
	} else {
		num.Sub(num, half)
	}
	return num.Quo(num, den).Int64()
}
