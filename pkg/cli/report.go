package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

var (
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	skipColor    = color.New(color.FgYellow)
	headingColor = color.New(color.Bold)
)

func printReport(w io.Writer, r *model.ProvisionReport) {
	headingColor.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "  catalog=%s strategy=%s policy=%s dir=%s\n", r.Catalog, r.Strategy, r.Policy, r.InstallDir)

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	for _, a := range r.Assets {
		switch a.State {
		case model.UnitInstalled:
			note := humanBytes(a.Bytes)
			if a.Unchanged {
				note = "unchanged"
			}
			fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\n", okColor.Sprint("✔"), a.Family, a.Style, a.File, note)
		case model.UnitFailed:
			fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\n", failColor.Sprint("✘"), a.Family, a.Style, a.Kind, a.Reason)
		default:
			fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\n", skipColor.Sprint("-"), a.Family, a.Style, a.State, a.Reason)
		}
	}
	tw.Flush()

	switch {
	case r.IndexRebuilt:
		fmt.Fprintln(w, "  index: rebuilt")
	case r.IndexError != "":
		fmt.Fprintf(w, "  index: %s\n", failColor.Sprint(r.IndexError))
	default:
		fmt.Fprintln(w, "  index: not rebuilt")
	}

	outcome := r.Outcome()
	c := okColor
	switch outcome {
	case model.OutcomePartial:
		c = skipColor
	case model.OutcomeFailure:
		c = failColor
	}
	fmt.Fprintf(w, "%s: %d/%d installed, %d failed, %d skipped in %s\n",
		c.Sprint(string(outcome)), r.Installed, r.Requested, r.Failed, r.Skipped,
		r.Duration().Round(time.Millisecond))
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
