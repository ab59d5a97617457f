// Command victron-decode decodes Victron Instant Readout records, either pasted as hex or
// received live over Bluetooth.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robertof/go-victron-exporter/device/victron"
	"github.com/robertof/go-victron-exporter/readout"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "victron-decode [record-hex]",
		Short: "Decode Victron Instant Readout records",
		Long: "victron-decode decrypts and decodes the manufacturer data that Victron devices broadcast.\n" +
			"Without an argument, one record per line is read from stdin.",
		Args: cobra.MaximumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := victron.ParseKey(keyHex)
			if err != nil {
				return err
			}

			p := printer{w: cmd.OutOrStdout(), json: asJSON}

			if len(args) == 0 {
				return runInteractive(cmd.InOrStdin(), key, p)
			}

			state, err := decodeHex(args[0], key)
			if err != nil {
				return err
			}

			return p.print(state)
		},
	}

	keyHex string
	asJSON bool
	debug  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&keyHex, "key", "", "hex-encoded 16-byte AES key (32 hex chars)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print states as JSON")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")
	rootCmd.AddCommand(listenCmd)
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("victron-decode failed")
	}
}

// decodeHex decodes a record written as hex, optionally prefixed by the e102 company id
// and with any spaces or colons in between.
func decodeHex(s string, key []byte) (readout.DeviceState, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(strings.ToLower(cleaned), "0x")

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("record is not valid hex: %w", err)
	}

	if companyID, rest, ok := readout.SplitManufacturerData(data); ok && companyID == readout.ManufacturerID {
		data = rest
	}

	return readout.Decode(data, key)
}

func runInteractive(in io.Reader, key []byte, p printer) error {
	scanner := bufio.NewScanner(in)
	log.Info().Msg("Paste a hex record and press Enter (Ctrl+D to exit).")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		state, err := decodeHex(line, key)
		if err != nil {
			log.Error().Err(err).Str("Record", line).Msg("Failed to decode record")
			continue
		}

		if err := p.print(state); err != nil {
			return err
		}
	}

	return scanner.Err()
}

type printer struct {
	w    io.Writer
	json bool
}

func (p printer) print(state readout.DeviceState) error {
	if !p.json {
		_, err := fmt.Fprintf(p.w, "%v: %v\n", state.RecordType(), state)
		return err
	}

	data, err := json.Marshal(struct {
		Type  string              `json:"type"`
		State readout.DeviceState `json:"state"`
	}{state.RecordType().String(), state})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(p.w, "%s\n", data)
	return err
}
