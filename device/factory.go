package device

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Factory interface {
	FromSpec(spec DeviceSpec) (Device, error)
}

type FactoryDocs interface {
	Help() string
}

// Registry maps a device kind, as used on the command line and in config files, to the
// factory building it.
type Registry map[string]Factory

func (r Registry) Kinds() []string {
	kinds := maps.Keys(r)
	slices.Sort(kinds)

	return kinds
}

func (r Registry) New(kind string, spec DeviceSpec) (Device, error) {
	f, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown device kind %q", ErrInvalidSpec, kind)
	}

	d, err := f.FromSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s device (%v): %w", kind, spec, err)
	}

	return d, nil
}
