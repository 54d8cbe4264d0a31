package biz

import (
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/config"
	"github.com/vearne/netsched/filter"
)

func NewFilterChain(settings *config.AppSettings) (filter.Filter, error) {
	c := filter.NewFilterChain()
	if len(settings.ExcludeFilterInterface) > 0 {
		c.AddExcludeFilters(filter.NewInterfaceExcludeFilter(settings.ExcludeFilterInterface...))
	}

	if len(settings.IncludeFilterInterfaceMatch) > 0 {
		f, err := filter.NewInterfaceMatchIncludeFilter(settings.IncludeFilterInterfaceMatch)
		if err != nil {
			return nil, err
		}
		c.AddIncludeFilter(f)
	}
	slog.Debug("filter chain, filters:%v", c.Len())
	return c, nil
}
