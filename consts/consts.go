// Package consts holds build information and the sentinel errors shared by
// the reactor packages.
package consts

import "github.com/pkg/errors"

var (
	Version   = "v0.1.0"
	BuildTime = "unknown"
	GitTag    = "unknown"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPastDeadline    = errors.New("deadline is in the past")
	ErrConstruction    = errors.New("reactor construction failed")
	ErrReactorActive   = errors.New("another reactor is already open")
	ErrInvalidState    = errors.New("invalid reactor state")
	ErrProtocal        = errors.New("protocol error")
)
