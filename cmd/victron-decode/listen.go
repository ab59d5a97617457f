package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/device/victron"
	"github.com/robertof/go-victron-exporter/stream"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Decode the live broadcasts of one device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := victron.ParseKey(keyHex)
			if err != nil {
				return err
			}

			src := &stream.BLESource{Name: listenName, DiscoveryTimeout: listenTimeout}

			if listenAddr != "" {
				if src.Addr, err = net.ParseMAC(listenAddr); err != nil {
					return fmt.Errorf("invalid --addr: %w", err)
				}
			} else if listenName == "" {
				return fmt.Errorf("one of --addr or --name is required")
			}

			flags := ble.FlagReportDuplicates
			if listenName != "" && src.Addr == nil {
				// local names only come with scan responses.
				flags |= ble.FlagScanTypeActive
			}

			handle, err := ble.Init(bluetoothDevice, flags)
			if err != nil {
				return err
			}

			defer handle.Stop()

			src.Handle = handle

			ctx, cancel := context.WithCancel(cmd.Context())
			ctx = ble.WrapContextWithSigHandler(ctx, cancel)
			defer cancel()

			opts := stream.DefaultOptions()
			opts.SkipUnsupported = skipUnsupported

			p := printer{w: cmd.OutOrStdout(), json: asJSON}
			log.Info().Stringer("Source", src).Msg("Listening")

			for res := range stream.Open(ctx, src, key, opts) {
				if res.Err != nil {
					return res.Err
				}

				if err := p.print(res.State); err != nil {
					return err
				}
			}

			return nil
		},
	}

	listenAddr      string
	listenName      string
	listenTimeout   time.Duration
	bluetoothDevice int
	skipUnsupported bool
)

func init() {
	listenCmd.Flags().StringVar(&listenAddr, "addr", "", "MAC address of the device")
	listenCmd.Flags().StringVar(&listenName, "name", "", "advertised name of the device, used when --addr is not set")
	listenCmd.Flags().DurationVar(&listenTimeout, "timeout", 30*time.Second, "give up when the device is not found within this long")
	listenCmd.Flags().IntVar(&bluetoothDevice, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
	listenCmd.Flags().BoolVar(&skipUnsupported, "skip-unsupported", false, "ignore records of device types without a decoder")
}
