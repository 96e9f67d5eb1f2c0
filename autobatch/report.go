package autobatch

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/olekukonko/tablewriter"

	"github.com/sammcj/autobatch/styles"
)

// DefaultBarWidth is the width of the utilisation bar in RenderReport.
const DefaultBarWidth = 40

// RenderReport formats a result as a table of probes followed by the
// chosen batch size and a bar showing predicted device utilisation.
func RenderReport(r *Result) string {
	return RenderReportWidth(r, DefaultBarWidth)
}

// RenderReportWidth is RenderReport with a custom bar width.
func RenderReportWidth(r *Result, barWidth int) string {
	if barWidth <= 0 {
		barWidth = DefaultBarWidth
	}
	title := styles.HeaderStyle()

	if r.Fallback {
		return title.Render(fmt.Sprintf("🧮 AutoBatch: %s", r.Device)) + "\n\n" +
			fmt.Sprintf("No accelerator detected, using default batch-size %d\n", r.BatchSize)
	}

	var buf bytes.Buffer
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"Batch", "Time (ms)", "Memory (GiB)", "Fit (GiB)"})
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.SetColumnSeparator("|")
	tw.SetRowSeparator("-")
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)

	headerColours := make([]tablewriter.Colors, 4)
	for i := range headerColours {
		headerColours[i] = tablewriter.Colors{tablewriter.FgHiWhiteColor}
	}
	tw.SetHeaderColor(headerColours...)

	for _, s := range r.Samples {
		fitted := "-"
		if r.Fit != nil {
			fitted = fmt.Sprintf("%.3f", r.Fit.Predict(float64(s.BatchSize)))
		}
		tw.Append([]string{
			strconv.Itoa(s.BatchSize),
			fmt.Sprintf("%.1f", float64(s.Elapsed.Microseconds())/1000),
			fmt.Sprintf("%.3f", s.MemoryGiB),
			fitted,
		})
	}
	tw.Render()

	out := title.Render(fmt.Sprintf("🧮 AutoBatch: %s (%s) at --imgsz %d", r.Device, r.Device.Name, r.ImageSize)) + "\n\n"
	out += buf.String() + "\n"
	if r.ProbeError != "" {
		out += styles.WarningStyle().Render("probing stopped: "+r.ProbeError) + "\n"
	}
	if r.Fit != nil {
		out += fmt.Sprintf("memory ≈ %.4f GiB × batch + %.4f GiB\n", r.Fit.Slope, r.Fit.Intercept)
	}

	predicted := r.PredictedGiB()
	out += fmt.Sprintf("%.2fG total, %.2fG free, targeting %.2fG (%.0f%%)\n",
		r.TotalGiB, r.FreeGiB, r.TargetGiB(), r.Fraction*100)
	out += utilisationBar(predicted, r.TotalGiB, barWidth) + "\n\n"
	out += colouredBatch(r.BatchSize, predicted, r.TotalGiB) + "\n"
	return out
}

func utilisationBar(used, total float64, width int) string {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
	if total <= 0 {
		return bar.ViewAs(0)
	}
	pct := used / total
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return bar.ViewAs(pct)
}

func colouredBatch(batch int, predicted, total float64) string {
	share := 2.0
	if batch >= 1 && total > 0 {
		share = predicted / total
	}
	return styles.UtilisationStyle(share).Render(fmt.Sprintf("Using batch-size %d", batch))
}
