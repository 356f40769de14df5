package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	gogithub "github.com/google/go-github/v66/github"

	ghclient "github.com/goblinsan/gh-roadmap/pkg/github"
	"github.com/goblinsan/gh-roadmap/pkg/types"
)

// TrackerClient defines the interface for GitHub operations needed by the engine.
type TrackerClient interface {
	CreateMilestone(ctx context.Context, owner, repo, title, description string) (*gogithub.Milestone, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string, milestone int) (*gogithub.Issue, error)
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	GetIssueBody(ctx context.Context, owner, repo string, number int) (string, error)
	EditIssueBody(ctx context.Context, owner, repo string, number int, body string) error
	GetIssueNodeID(ctx context.Context, owner, repo string, number int) (string, error)
	AddSubIssue(ctx context.Context, parentNodeID, childNodeID string) error
}

// Ensure *github.Client satisfies the interface at compile time.
var _ TrackerClient = (*ghclient.Client)(nil)

// Options configures the behavior of Apply and Link.
type Options struct {
	DryRun bool

	// Out receives progress lines. Defaults to stdout; serve redirects
	// it to stderr so the JSON-RPC channel stays pure JSON.
	Out io.Writer
}

func (o Options) writer() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

// parentEpicHeader is the documented text convention marking a child
// issue's parent. The formal relation is the sub-issue link; the header
// keeps the parent visible in plain body text.
const parentEpicHeader = "**Parent Epic:**"

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

// Apply walks the roadmap in catalog order: one milestone per phase, one
// epic under it, then the epic's children, each linked as a sub-issue
// immediately after creation.
//
// Failures never abort the run. A failed milestone skips its entire
// phase, a failed epic skips its children, and a failed child or label
// only skips itself; everything else proceeds. Every failure lands in
// the report.
func Apply(ctx context.Context, client TrackerClient, roadmap types.Roadmap, opts Options) (*Report, error) {
	owner, repo, err := splitRepository(roadmap.Repository)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, phase := range roadmap.Phases {
		applyPhase(ctx, client, report, owner, repo, phase, opts)
	}
	return report, nil
}

func applyPhase(ctx context.Context, client TrackerClient, report *Report, owner, repo string, phase types.Phase, opts Options) {
	out := opts.writer()
	fmt.Fprintf(out, "\n%s\n", phase.Name)

	description := phase.Description
	if phase.Duration != "" {
		description += "\n\nEstimated Duration: " + phase.Duration
	}

	epicTitle := phase.Epic.Title
	if epicTitle == "" {
		epicTitle = "Epic: " + phase.Name
	}

	if opts.DryRun {
		fmt.Fprintf(out, "  [dry-run] Would create milestone: %s\n", phase.Name)
		fmt.Fprintf(out, "  [dry-run] Would create epic: %s\n", epicTitle)
		for _, child := range phase.Epic.Children {
			fmt.Fprintf(out, "  [dry-run]   Would create child issue: %s\n", child.Title)
		}
		return
	}

	milestone, err := client.CreateMilestone(ctx, owner, repo, phase.Name, description)
	if err != nil {
		report.fail(OpMilestone, phase.Name, 0, err)
		report.PhasesSkipped++
		fmt.Fprintf(out, "  %s milestone: %s\n", failMark("✗"), truncate(err.Error(), 100))
		return
	}
	report.MilestonesCreated++
	milestoneNum := milestone.GetNumber()
	fmt.Fprintf(out, "  %s Milestone #%d\n", okMark("✓"), milestoneNum)

	epic, err := client.CreateIssue(ctx, owner, repo, epicTitle, phase.Epic.Body, milestoneNum)
	if err != nil {
		report.fail(OpEpic, epicTitle, 0, err)
		report.EpicsSkipped++
		fmt.Fprintf(out, "  %s epic: %s\n", failMark("✗"), truncate(err.Error(), 100))
		return
	}
	report.EpicsCreated++
	epicNum := epic.GetNumber()
	fmt.Fprintf(out, "  %s Epic #%d: %s\n", okMark("✓"), epicNum, epicTitle)

	applyLabels(ctx, client, report, out, owner, repo, epicNum, phase.Epic.Labels)

	// Resolve the epic's node id once; children reuse it for linking.
	// If resolution fails the children are still created (with the body
	// reference), just not formally linked.
	epicNodeID, err := client.GetIssueNodeID(ctx, owner, repo, epicNum)
	if err != nil {
		report.fail(OpLink, epicTitle, epicNum, err)
		fmt.Fprintf(out, "  %s resolve epic node id: %s\n", failMark("✗"), truncate(err.Error(), 100))
	}

	for _, child := range phase.Epic.Children {
		body := fmt.Sprintf("%s\n\n---\n\n%s #%d", child.Body, parentEpicHeader, epicNum)
		issue, err := client.CreateIssue(ctx, owner, repo, child.Title, body, milestoneNum)
		if err != nil {
			report.fail(OpIssue, child.Title, 0, err)
			fmt.Fprintf(out, "    %s %s: %s\n", failMark("✗"), child.Title, truncate(err.Error(), 100))
			continue
		}
		report.IssuesCreated++
		childNum := issue.GetNumber()
		fmt.Fprintf(out, "    %s Issue #%d: %s\n", okMark("✓"), childNum, child.Title)

		applyLabels(ctx, client, report, out, owner, repo, childNum, child.Labels)

		if epicNodeID == "" {
			continue
		}
		childNodeID, err := client.GetIssueNodeID(ctx, owner, repo, childNum)
		if err != nil {
			report.fail(OpLink, child.Title, childNum, err)
			fmt.Fprintf(out, "    %s resolve node id: %s\n", failMark("✗"), truncate(err.Error(), 100))
			continue
		}
		if err := client.AddSubIssue(ctx, epicNodeID, childNodeID); err != nil {
			report.fail(OpLink, child.Title, childNum, err)
			fmt.Fprintf(out, "    %s link #%d → #%d: %s\n", failMark("✗"), childNum, epicNum, truncate(err.Error(), 100))
			continue
		}
		report.IssuesLinked++
	}
}

// applyLabels adds labels one at a time, best-effort. A failed label is
// recorded but never fails the owning issue.
func applyLabels(ctx context.Context, client TrackerClient, report *Report, out io.Writer, owner, repo string, number int, labels []string) {
	for _, label := range labels {
		if err := client.AddLabels(ctx, owner, repo, number, []string{label}); err != nil {
			report.fail(OpLabel, label, number, err)
			fmt.Fprintf(out, "    %s label %q on #%d: %s\n", failMark("✗"), label, number, truncate(err.Error(), 100))
		}
	}
}

func splitRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s", repository)
	}
	return parts[0], parts[1], nil
}
