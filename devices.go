package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sammcj/autobatch/device"
	"github.com/sammcj/autobatch/logging"
	"github.com/sammcj/autobatch/styles"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List host memory and NVIDIA GPUs",
		Long:  `Shows the devices estimate can target. GPUs are discovered with nvidia-smi.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runDevices(ctx context.Context, out io.Writer) error {
	host, err := device.HostMemory()
	if err != nil {
		return err
	}
	hostFree, err := device.HostAvailable()
	if err != nil {
		return err
	}

	var gpus []device.GPU
	if device.NVIDIAAvailable() {
		gpus, err = device.QueryNVIDIA(ctx)
		if err != nil {
			logging.ErrorLogger.Error().Err(err).Msg("Error querying NVIDIA GPUs")
			fmt.Fprintln(out, styles.WarningStyle().Render("Could not query NVIDIA GPUs: "+err.Error()))
		}
	}

	fmt.Fprint(out, renderDevices(device.GPU{Info: host, Free: hostFree, Used: host.TotalMemory - min(hostFree, host.TotalMemory)}, gpus))
	return nil
}

func renderDevices(host device.GPU, gpus []device.GPU) string {
	var buf bytes.Buffer
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"Device", "Name", "Total", "Used", "Free", "Selector"})
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.SetColumnSeparator("|")
	tw.SetRowSeparator("-")
	tw.SetAutoWrapText(false)

	headerColours := make([]tablewriter.Colors, 6)
	for i := range headerColours {
		headerColours[i] = tablewriter.Colors{tablewriter.FgHiWhiteColor}
	}
	tw.SetHeaderColor(headerColours...)

	tw.Append(deviceRow(host, "cpu"))
	for _, g := range gpus {
		tw.Append(deviceRow(g, fmt.Sprintf("cuda:%d", g.Index)))
	}
	tw.Render()

	title := styles.HeaderStyle().Render("🧮 Devices")
	if len(gpus) == 0 {
		return title + "\n\n" + buf.String() + "\n" +
			styles.MutedStyle().Render("No NVIDIA GPU found; use --device sim to estimate against a simulated card.") + "\n"
	}
	return title + "\n\n" + buf.String()
}

func deviceRow(g device.GPU, selector string) []string {
	return []string{
		g.String(),
		g.Name,
		humanize.IBytes(g.TotalMemory),
		humanize.IBytes(g.Used),
		humanize.IBytes(g.Free),
		selector,
	}
}
