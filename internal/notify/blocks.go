package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/store"
)

var healthLabels = map[string]string{
	project.HealthOnTrack: "🟢 On track",
	project.HealthAtRisk:  "🟡 At risk",
	project.HealthBehind:  "🔴 Behind",
}

// truncate shortens s to max chars, appending "…" if truncated.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// BuildDigestBlocks creates the Block Kit message for a project check-in:
// headline, schedule summary, critical path and any advisories.
func BuildDigestBlocks(proj *store.Project, plan *project.Plan) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject("plain_text",
				truncate(fmt.Sprintf("📅 %s — schedule check-in", proj.Name), 150),
				false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", buildSummary(proj, plan), false, false),
			nil, nil,
		),
	}

	if path := buildCriticalPath(plan); path != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", path, false, false),
			nil, nil,
		))
	}

	if advisories := buildAdvisories(plan); advisories != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn", advisories, false, false),
				nil, nil,
			),
		)
	}

	return blocks
}

// DigestSummary returns the one-line fallback text for notifications.
func DigestSummary(proj *store.Project, plan *project.Plan) string {
	return fmt.Sprintf("%s: %d day schedule, %s",
		proj.Name, plan.Schedule.ProjectDuration, plan.Health)
}

func buildSummary(proj *store.Project, plan *project.Plan) string {
	var sb strings.Builder

	label, ok := healthLabels[plan.Health]
	if !ok {
		label = plan.Health
	}
	sb.WriteString(fmt.Sprintf("*Health:* %s\n", label))
	sb.WriteString(fmt.Sprintf("*Remaining duration:* %d days\n", plan.Schedule.ProjectDuration))
	sb.WriteString(fmt.Sprintf("*Estimated completion:* %s\n",
		time.UnixMilli(plan.EstimatedCompletion).UTC().Format("Mon, 02 Jan 2006")))
	if proj.TargetDate > 0 {
		sb.WriteString(fmt.Sprintf("*Target:* %s\n",
			time.UnixMilli(proj.TargetDate).UTC().Format("Mon, 02 Jan 2006")))
	}
	sb.WriteString(fmt.Sprintf("*Tasks scheduled:* %d", len(plan.Schedule.Nodes)))

	return sb.String()
}

func buildCriticalPath(plan *project.Plan) string {
	if len(plan.Schedule.CriticalPath) == 0 {
		return ""
	}

	names := make([]string, 0, len(plan.Schedule.CriticalPath))
	for _, id := range plan.Schedule.CriticalPath {
		if node, ok := plan.Schedule.Node(id); ok {
			names = append(names, truncate(node.Name, 40))
		}
	}
	return "*Critical path:*\n" + "`" + strings.Join(names, "` → `") + "`"
}

func buildAdvisories(plan *project.Plan) string {
	var lines []string

	for _, d := range plan.Schedule.Diagnostics {
		lines = append(lines, fmt.Sprintf("⚠️ %s (%d tasks affected)", d.Message, len(d.TaskIDs)))
	}
	for _, rec := range plan.Resources.Recommendations {
		lines = append(lines, "📊 "+rec)
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}
