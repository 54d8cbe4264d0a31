//go:build !linux

package reactor

import "fmt"

type poller struct{}

func newPoller() (*poller, error) {
	return nil, fmt.Errorf("Not implemented")
}

func (p *poller) Add(fd int) error {
	return fmt.Errorf("Not implemented")
}

func (p *poller) Wait(ready []int) ([]int, error) {
	return ready, fmt.Errorf("Not implemented")
}

func (p *poller) Close() error {
	return nil
}
