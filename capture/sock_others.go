//go:build !linux

package capture

import "fmt"

// NewSocket is only available on linux.
func NewSocket(ifi Interface) (Socket, error) {
	return nil, fmt.Errorf("Not implemented")
}
