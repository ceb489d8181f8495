// Package report renders finalized cluster test results as markdown and
// HTML for export.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"

	"permcluster/internal/dist"
)

// Markdown renders the cluster table and null distribution summary of a
// result as a markdown document.
func Markdown(res *dist.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Cluster test: %s\n\n", res.Name)
	fmt.Fprintf(&b, "Statistic: %s, %d permutations, %d cluster(s)\n\n", res.Meas, res.Samples, res.NClusters)

	if res.NClusters == 0 {
		b.WriteString("No clusters exceeded the forming threshold.\n")
		return b.String()
	}

	b.WriteString("| rank | p | v | tstart | tstop |\n")
	b.WriteString("|-----:|--:|--:|-------:|------:|\n")
	for i, c := range res.Clusters {
		fmt.Fprintf(&b, "| %d | %.4f | %.3f | %s | %s |\n",
			i, c.P, c.V, formatTime(c.TStart), formatTime(c.TStop))
	}

	fmt.Fprintf(&b, "\nNull distribution of max cluster mass: mean %.3f, sd %.3f, range [%.3f, %.3f], 95th %.3f\n",
		res.Null.Mean, res.Null.StdDev, res.Null.Min, res.Null.Max, res.Null.Percentile95)
	return b.String()
}

// HTML renders the markdown report as an HTML fragment.
func HTML(res *dist.Result) []byte {
	return markdown.ToHTML([]byte(Markdown(res)), nil, nil)
}

func formatTime(t *float64) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *t)
}
