package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-relay/internal/device"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices and their default formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "NAME\tINPUT\tOUTPUT\tSELECTOR\tDESCRIPTION")
			for _, k := range device.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.Name, yesNo(k.Input), yesNo(k.Output), k.Selector, k.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			in, err := device.OpenInput("default")
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := device.OpenOutput("default")
			if err != nil {
				return err
			}
			defer out.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "\nDefault input:  %s, %d Hz, %d channels, %d frames per buffer\n",
				in.Name(), in.Config().SampleRate, in.Config().Channels, in.Config().FrameSize)
			fmt.Fprintf(cmd.OutOrStdout(), "Default output: %s, %d Hz, %d channels, %d frames per buffer\n",
				out.Name(), out.Config().SampleRate, out.Config().Channels, out.Config().FrameSize)
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
