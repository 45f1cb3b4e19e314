package util

import (
	"math"
	"strconv"
)

// Round2 四舍五入到两位小数，百分比与百分位统一用它
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ParseUint(s string) uint {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

func ParseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
