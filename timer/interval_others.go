//go:build !linux

package timer

import (
	"fmt"
	"time"
)

func setTimer(d time.Duration) error {
	return fmt.Errorf("Not implemented")
}
