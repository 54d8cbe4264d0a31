package capture

import (
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/vearne/netsched/util"
)

// DefaultSysClassNet is where the kernel lists network interfaces.
const DefaultSysClassNet = "/sys/class/net"

// Interface describes a capturable network interface.
type Interface struct {
	Name  string
	Index int
	MTU   int
}

// ListInterfaces returns the sorted interface names found in dir, without
// loopback interfaces and without the names in ignore.
func ListInterfaces(dir string, ignore *util.StringSet) ([]string, error) {
	if dir == "" {
		dir = DefaultSysClassNet
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read interface directory %v", dir)
	}
	names := util.NewStringSet()
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "lo") {
			continue
		}
		if ignore != nil && ignore.Has(name) {
			continue
		}
		names.Add(name)
	}
	return names.Sorted(), nil
}

// LookupInterface resolves index and MTU of the named interface.
func LookupInterface(name string) (Interface, error) {
	stats, err := psnet.Interfaces()
	if err == nil {
		for _, st := range stats {
			if st.Name == name {
				return Interface{Name: st.Name, Index: st.Index, MTU: st.MTU}, nil
			}
		}
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return Interface{}, errors.Wrapf(err, "lookup interface %v", name)
	}
	return Interface{Name: ifi.Name, Index: ifi.Index, MTU: ifi.MTU}, nil
}
