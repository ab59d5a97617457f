package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robertof/go-victron-exporter/collector"
	"github.com/robertof/go-victron-exporter/device"
	"github.com/robertof/go-victron-exporter/device/victron"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type config struct {
  Debug, Trace bool
  BindAddress string
  EnableMetamonitoring bool
  DiscoverDevices bool
  Watch bool
  BluetoothDeviceId int
  MaxRetries int
  InitialCollectionTimeout, CollectionTimeout time.Duration
  CollectionInterval, CollectionIdleTimeout time.Duration
  MaxReadingAge time.Duration
  DiscoveryTimeout time.Duration
  Backoff time.Duration
  Devices []device.Device
}

type boundDeviceList struct {
  kind string
  list *[]device.Device
}

var deviceFactories = device.Registry{
  "victron": &victron.Factory{},
}

func (d *boundDeviceList) String() string {
  return ""
}

func (d *boundDeviceList) Set(v string) error {
  device, err := deviceFactories.New(d.kind, device.NewDeviceSpec(v))
  if err != nil {
    return err
  }

  *d.list = append(*d.list, device)

  return nil
}

// configFile lists devices by kind, e.g.
//
//	devices:
//	  victron:
//	    - addr: c4:d1:95:24:7e:01
//	      key: 0123456789abcdef0123456789abcdef
//	      name: shunt
type configFile struct {
  Devices map[string][]device.DeviceSpec `yaml:"devices"`
}

// configFileFlag loads devices from a YAML file, which keeps keys off the command line.
type configFileFlag struct {
  list *[]device.Device
}

func (c *configFileFlag) String() string {
  return ""
}

func (c *configFileFlag) Set(path string) error {
  f, err := os.Open(path)
  if err != nil {
    return fmt.Errorf("failed to open config file: %w", err)
  }

  defer f.Close()

  devices, err := loadDevices(f)
  if err != nil {
    return fmt.Errorf("%s: %w", path, err)
  }

  *c.list = append(*c.list, devices...)

  return nil
}

func loadDevices(r io.Reader) ([]device.Device, error) {
  var file configFile

  dec := yaml.NewDecoder(r)
  dec.KnownFields(true)

  if err := dec.Decode(&file); err != nil && err != io.EOF {
    return nil, fmt.Errorf("failed to parse config file: %w", err)
  }

  var devices []device.Device

  kinds := maps.Keys(file.Devices)
  slices.Sort(kinds)

  for _, kind := range kinds {
    for _, spec := range file.Devices[kind] {
      dev, err := deviceFactories.New(kind, spec)
      if err != nil {
        return nil, err
      }

      devices = append(devices, dev)
    }
  }

  return devices, nil
}

func ParseArgs() config {
  var cfg config

  flag.StringVar(&cfg.BindAddress,"bind", "localhost:9102", "Where the exporter will bind to")
  flag.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
  flag.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available BLE devices and quit")
  flag.BoolVar(&cfg.Watch, "watch", false, "Log every reading of the configured devices instead of exporting metrics")
  flag.BoolVar(&cfg.EnableMetamonitoring, "metamonitoring", true, "Enable metamonitoring metrics")
  flag.IntVar(&cfg.MaxRetries, "max-retries", collector.DefaultMaxRetries, "Max number of retries")
  flag.DurationVar(&cfg.InitialCollectionTimeout, "initial-timeout", 10 * time.Second,
    "Timeout for the collection done on start (per retry attempt)")
  flag.DurationVar(&cfg.CollectionTimeout, "timeout", collector.DefaultTimeoutPerAttempt,
    "Timeout for the periodic collections (per retry attempt)")
  flag.DurationVar(&cfg.CollectionInterval, "interval", 60 * time.Second,
    "How frequently data collection happens")
  flag.DurationVar(&cfg.CollectionIdleTimeout, "idle-timeout", -1,
    "Timeout after which the collector is shut down if no data is read. Defaults to 3 * CollectionInterval")
  flag.DurationVar(&cfg.MaxReadingAge, "max-age", -1,
    "Readings older than this are no longer exported. Defaults to 5 * CollectionInterval, 0 disables")
  flag.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", 30 * time.Second,
    "How long -watch waits for a device to show up")
  flag.DurationVar(&cfg.Backoff, "backoff", collector.DefaultBackoffFactor,
    "Exponential backoff factor for retries")
  flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")
  flag.Var(&configFileFlag{list: &cfg.Devices}, "config", "YAML `file` listing devices by kind")

  for _, kind := range deviceFactories.Kinds() {
    boundList := boundDeviceList{
      kind: kind,
      list: &cfg.Devices,
    }

    help := "Device spec for this device in the form of `key=value,key=value`."

    if docs, ok := deviceFactories[kind].(device.FactoryDocs); ok {
      help += "\n" + docs.Help()
    }

    flag.Var(&boundList, kind, help)
  }

  flag.Parse()

  if cfg.CollectionIdleTimeout < 0 {
    cfg.CollectionIdleTimeout = cfg.CollectionInterval * 3
  }

  if cfg.MaxReadingAge < 0 {
    cfg.MaxReadingAge = cfg.CollectionInterval * 5
  }

  if !cfg.DiscoverDevices && len(cfg.Devices) == 0 {
    fmt.Fprintln(os.Stderr, "Error: at least one device is required!")
    flag.Usage()
    os.Exit(1)
  }

  return cfg
}
