package aggregator

import "math"

var posInf = math.Inf(1)

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sqrtF(f float64) float64 {
	if f <= 0 {
		return 0
	}
	return math.Sqrt(f)
}
