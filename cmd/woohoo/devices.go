package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/woohoo/pkg/capture/malgo"
)

func newDevicesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long:  `Lists the microphones miniaudio can open. Pass an ID to "record --device" or set capture.device_id.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := malgo.ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(devices, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(devices) == 0 {
				fmt.Fprintln(out, "No capture devices found.")
				return nil
			}
			for _, d := range devices {
				mark := " "
				if d.IsDefault {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s  %s\n", mark, d.ID, d.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output devices as JSON")
	return cmd
}
