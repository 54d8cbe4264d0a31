/*
Package capture owns the raw frame sources the reactor multiplexes.

A Registry enumerates the host's interface directory once, skips loopback
and ignored names, and opens one non-blocking AF_PACKET socket per interface.
Each socket maps a TPACKET_V2 receive ring shared with the kernel, so a
descriptor is readable exactly when the ring holds a frame for user space.
Frames are read one at a time; an empty ring yields ErrNoFrame.

example:

	reg, err := capture.Open(capture.Config{SysClassNet: "/sys/class/net"})
	if err != nil {
		// *capture.ConstructionError
	}
	defer reg.Close()

	reg.DrainPending() // drop backlog
	for _, src := range reg.Sources() {
		// register src.Fd() for read readiness
	}
*/
package capture
