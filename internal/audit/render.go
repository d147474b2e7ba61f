package audit

import (
	"fmt"
	"strings"
)

// RenderText renders report as a plain-text summary.
func RenderText(r *Report) string {
	var sb strings.Builder

	sb.WriteString("Launchpad audit\n\n")
	sb.WriteString(fmt.Sprintf("Launches: %d | Matched: %d | Divergent: %d | Archive drift: %d\n\n",
		r.TotalLaunches, r.MatchedLaunches, r.DivergentLaunches, r.DriftingLaunches))

	for _, res := range r.Results {
		status := "OK"
		if !res.Match {
			status = "DIVERGENT"
		}
		sb.WriteString(fmt.Sprintf("launch %d  %-20s %-9s events=%d settlements=%d failed=%d pending=%d\n",
			res.LaunchID, res.Status, status, res.Events, res.Settlements, res.FailedSettlements, res.PendingSettlements))
		for _, d := range res.Divergences {
			sb.WriteString(fmt.Sprintf("  - %s\n", d))
		}
		for _, d := range res.ArchiveDrift {
			sb.WriteString(fmt.Sprintf("  ~ %s\n", d))
		}
	}

	if len(r.Platform) > 0 {
		sb.WriteString("\nPlatform\n")
		for _, d := range r.Platform {
			sb.WriteString(fmt.Sprintf("  - %s\n", d))
		}
	}

	if r.Clean() {
		sb.WriteString("\nAll checks passed.\n")
	} else {
		sb.WriteString("\nDivergences found.\n")
	}
	return sb.String()
}
