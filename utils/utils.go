package utils

func Min(x int, y int) int {
	if x < y {
		return x
	}
	return y
}
