package settings

import "fmt"

func errOutOfRange(field string, got, lo, hi int) error {
	return fmt.Errorf("settings: %s=%d out of range [%d,%d]", field, got, lo, hi)
}

func errMismatch(got, want int) error {
	return fmt.Errorf("settings: axis_names has %d entries, want %d", got, want)
}
