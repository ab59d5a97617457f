package device

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type DeviceSpec map[string]string

const (
  DeviceSpecFieldName = "name"
  DeviceSpecFieldAddress = "addr"
  DeviceSpecFieldKey = "key"
)

func NewDeviceSpec(s string) DeviceSpec {
  spec := DeviceSpec{}
  entries := strings.Split(s, ",")

  for _, entry := range entries {
    parts := strings.SplitN(entry, "=", 2)

    if len(parts) != 2 {
      log.Warn().Str("Entry", entry).Msg("Skipping invalid device spec entry")
      continue
    }

    spec[strings.ToLower(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
  }

  return spec
}

func (ds DeviceSpec) Name() string {
  return ds[DeviceSpecFieldName]
}

func (ds DeviceSpec) Addr() string {
  return ds[DeviceSpecFieldAddress]
}

func (ds DeviceSpec) Key() string {
  return ds[DeviceSpecFieldKey]
}

// Bool reads a yes/no style field. Missing fields are false.
func (ds DeviceSpec) Bool(field string) (bool, error) {
  switch strings.ToLower(ds[field]) {
  case "", "no", "false", "0":
    return false, nil
  case "yes", "true", "1":
    return true, nil
  default:
    return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidSpec, field, ds[field])
  }
}

// String omits the key.
func (ds DeviceSpec) String() string {
  keys := maps.Keys(ds)
  slices.Sort(keys)

  fields := make([]string, len(keys))

  for i, k := range keys {
    v := ds[k]

    if k == DeviceSpecFieldKey {
      v = "<redacted>"
    }

    fields[i] = k + "=" + v
  }

  return strings.Join(fields, ",")
}
