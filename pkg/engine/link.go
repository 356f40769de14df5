package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goblinsan/gh-roadmap/pkg/types"
)

// Link establishes parent/child relations for already-created issues
// from an epic → children number map. Node ids are resolved once per
// issue and cached for the run.
//
// The pass is idempotent: the addSubIssue mutation replaces the parent
// rather than duplicating it, and the body annotation is only added when
// the parent header is not already present. Every per-item failure is
// recorded and the pass runs to completion.
func Link(ctx context.Context, client TrackerClient, linkMap types.LinkMap, opts Options) (*Report, error) {
	owner, repo, err := splitRepository(linkMap.Repository)
	if err != nil {
		return nil, err
	}

	out := opts.writer()
	report := &Report{}
	nodeIDs := make(map[int]string)
	resolve := func(number int) (string, error) {
		if id, ok := nodeIDs[number]; ok {
			return id, nil
		}
		id, err := client.GetIssueNodeID(ctx, owner, repo, number)
		if err != nil {
			return "", err
		}
		nodeIDs[number] = id
		return id, nil
	}

	for _, link := range linkMap.Links {
		fmt.Fprintf(out, "Linking children to epic #%d...\n", link.Epic)

		if opts.DryRun {
			for _, childNum := range link.Children {
				fmt.Fprintf(out, "  [dry-run] Would link #%d → #%d\n", childNum, link.Epic)
			}
			continue
		}

		parentID, err := resolve(link.Epic)
		if err != nil {
			report.fail(OpLink, "", link.Epic, err)
			fmt.Fprintf(out, "  %s resolve epic #%d: %s\n", failMark("✗"), link.Epic, truncate(err.Error(), 100))
			continue
		}

		for _, childNum := range link.Children {
			childID, err := resolve(childNum)
			if err != nil {
				report.fail(OpLink, "", childNum, err)
				fmt.Fprintf(out, "  %s resolve #%d: %s\n", failMark("✗"), childNum, truncate(err.Error(), 100))
				continue
			}
			if err := client.AddSubIssue(ctx, parentID, childID); err != nil {
				report.fail(OpLink, "", childNum, err)
				fmt.Fprintf(out, "  %s link #%d → #%d: %s\n", failMark("✗"), childNum, link.Epic, truncate(err.Error(), 100))
				continue
			}
			report.IssuesLinked++
			fmt.Fprintf(out, "  %s Linked #%d → #%d\n", okMark("✓"), childNum, link.Epic)

			annotateParent(ctx, client, report, out, owner, repo, childNum, link.Epic)
		}
	}
	return report, nil
}

// annotateParent prepends the parent header to the child body when it is
// missing. Skipped when already present so re-runs leave the body alone.
func annotateParent(ctx context.Context, client TrackerClient, report *Report, out io.Writer, owner, repo string, childNum, epicNum int) {
	body, err := client.GetIssueBody(ctx, owner, repo, childNum)
	if err != nil {
		report.fail(OpEdit, "", childNum, err)
		fmt.Fprintf(out, "  %s read body of #%d: %s\n", failMark("✗"), childNum, truncate(err.Error(), 100))
		return
	}
	marker := fmt.Sprintf("%s #%d", parentEpicHeader, epicNum)
	if strings.Contains(body, marker) {
		return
	}
	newBody := marker + "\n\n" + body
	if err := client.EditIssueBody(ctx, owner, repo, childNum, newBody); err != nil {
		report.fail(OpEdit, "", childNum, err)
		fmt.Fprintf(out, "  %s annotate #%d: %s\n", failMark("✗"), childNum, truncate(err.Error(), 100))
	}
}
