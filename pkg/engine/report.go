package engine

import (
	"fmt"
	"unicode/utf8"
)

// Op identifies which tracker operation an outcome belongs to.
type Op string

const (
	OpMilestone Op = "milestone"
	OpEpic      Op = "epic"
	OpIssue     Op = "issue"
	OpLabel     Op = "label"
	OpLink      Op = "link"
	OpEdit      Op = "edit"
)

// Outcome records one failed tracker operation. Successful operations
// only bump the report counters; failures are kept individually so the
// caller can decide whether partial failure is acceptable. Message
// mirrors Err for serialized reports (the MCP tool result).
type Outcome struct {
	Op      Op     `json:"op"`
	Title   string `json:"title,omitempty"`
	Number  int    `json:"number,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (o Outcome) String() string {
	ref := o.Title
	if o.Number > 0 {
		ref = fmt.Sprintf("#%d", o.Number)
		if o.Title != "" {
			ref = fmt.Sprintf("#%d %s", o.Number, o.Title)
		}
	}
	return fmt.Sprintf("%s %s: %s", o.Op, ref, truncate(o.Err.Error(), 100))
}

// Report summarizes one apply or link pass.
type Report struct {
	MilestonesCreated int       `json:"milestones_created"`
	EpicsCreated      int       `json:"epics_created"`
	EpicsSkipped      int       `json:"epics_skipped"`
	IssuesCreated     int       `json:"issues_created"`
	IssuesLinked      int       `json:"issues_linked"`
	PhasesSkipped     int       `json:"phases_skipped"`
	Failures          []Outcome `json:"failures,omitempty"`
}

func (r *Report) fail(op Op, title string, number int, err error) {
	r.Failures = append(r.Failures, Outcome{Op: op, Title: title, Number: number, Message: err.Error(), Err: err})
}

func (r *Report) String() string {
	return fmt.Sprintf("Summary: %d milestones, %d epics, %d issues created, %d issues linked, %d phases skipped (%d epics), %d failures",
		r.MilestonesCreated, r.EpicsCreated, r.IssuesCreated, r.IssuesLinked, r.PhasesSkipped, r.EpicsSkipped, len(r.Failures))
}

// truncate shortens error text for progress lines, cutting at a rune
// boundary; full errors stay in the report.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
