package ble

import (
  "strconv"
  "strings"
)

type Flags int

const (
  // Run active scans rather than passive scans (requiring explicit responses from peripherals).
  FlagScanTypeActive Flags = 1 << iota
  // Enable an allowlist for scans. Must be configured with `SetAllowListedAddresses()`.
  FlagEnableDeviceAllowList
  // Report every advertisement rather than only the first one per device.
  // Instant readout payloads change between advertisements, so streaming needs this.
  FlagReportDuplicates
)

var flagNames = []struct {
  flag Flags
  name string
}{
  {FlagScanTypeActive, "active scan"},
  {FlagEnableDeviceAllowList, "device allow-list"},
  {FlagReportDuplicates, "report duplicates"},
}

func (f Flags) Has(flag Flags) bool {
  return f & flag == flag
}

func (f Flags) String() string {
  var flags []string

  for _, entry := range flagNames {
    if f.Has(entry.flag) {
      flags = append(flags, entry.name)
    }
  }

  if len(flags) == 0 {
    return "none"
  }

  return strings.Join(flags, ", ")
}

type scanType uint8

const (
  scanTypePassive scanType = iota
  scanTypeActive
)

func scanTypeFor(f Flags) scanType {
  if f.Has(FlagScanTypeActive) {
    return scanTypeActive
  }

  return scanTypePassive
}

func (s scanType) String() string {
  switch s {
  case scanTypeActive:
    return "Active"
  case scanTypePassive:
    return "Passive"
  default:
    panic("unknown scanType value: " + strconv.Itoa(int(s)))
  }
}

type filterPolicy uint8

const (
  filterPolicyAcceptAll filterPolicy = iota
  filterPolicyAllowListedOnly
)

func filterPolicyFor(f Flags) filterPolicy {
  if f.Has(FlagEnableDeviceAllowList) {
    return filterPolicyAllowListedOnly
  }

  return filterPolicyAcceptAll
}

func (f filterPolicy) String() string {
  switch f {
  case filterPolicyAcceptAll:
    return "Accept All"
  case filterPolicyAllowListedOnly:
    return "Allow-listed Only"
  default:
    panic("unknown filterPolicy value: " + strconv.Itoa(int(f)))
  }
}
