package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	gogithub "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goblinsan/gh-roadmap/pkg/types"
)

// mockClient implements TrackerClient for testing. Numbers are assigned
// sequentially; node ids are derived from numbers. Failures are injected
// per title, label, or number.
type mockClient struct {
	nextMilestone int
	nextIssue     int

	createdIssues []string       // titles in creation order
	bodies        map[int]string // issue number -> body
	labels        map[int][]string
	links         map[string]string // child node id -> parent node id
	editCount     int

	failMilestones map[string]bool
	failIssues     map[string]bool
	failLabels     map[string]bool
	failResolve    map[int]bool
	failLink       bool
}

func newMockClient() *mockClient {
	return &mockClient{
		nextMilestone:  10,
		nextIssue:      11,
		bodies:         make(map[int]string),
		labels:         make(map[int][]string),
		links:          make(map[string]string),
		failMilestones: make(map[string]bool),
		failIssues:     make(map[string]bool),
		failLabels:     make(map[string]bool),
		failResolve:    make(map[int]bool),
	}
}

func (m *mockClient) CreateMilestone(_ context.Context, _, _, title, _ string) (*gogithub.Milestone, error) {
	if m.failMilestones[title] {
		return nil, errors.New("422 Validation Failed")
	}
	num := m.nextMilestone
	m.nextMilestone++
	return &gogithub.Milestone{Number: &num, Title: &title}, nil
}

func (m *mockClient) CreateIssue(_ context.Context, _, _, title, body string, _ int) (*gogithub.Issue, error) {
	if m.failIssues[title] {
		return nil, errors.New("403 Forbidden")
	}
	num := m.nextIssue
	m.nextIssue++
	m.createdIssues = append(m.createdIssues, title)
	m.bodies[num] = body
	return &gogithub.Issue{Number: &num, Title: &title}, nil
}

func (m *mockClient) AddLabels(_ context.Context, _, _ string, number int, labels []string) error {
	for _, label := range labels {
		if m.failLabels[label] {
			return fmt.Errorf("label %q not found", label)
		}
	}
	m.labels[number] = append(m.labels[number], labels...)
	return nil
}

func (m *mockClient) GetIssueBody(_ context.Context, _, _ string, number int) (string, error) {
	body, ok := m.bodies[number]
	if !ok {
		return "", fmt.Errorf("issue #%d not found", number)
	}
	return body, nil
}

func (m *mockClient) EditIssueBody(_ context.Context, _, _ string, number int, body string) error {
	if _, ok := m.bodies[number]; !ok {
		return fmt.Errorf("issue #%d not found", number)
	}
	m.bodies[number] = body
	m.editCount++
	return nil
}

func (m *mockClient) GetIssueNodeID(_ context.Context, _, _ string, number int) (string, error) {
	if m.failResolve[number] {
		return "", errors.New("Could not resolve to an Issue")
	}
	return fmt.Sprintf("node-%d", number), nil
}

func (m *mockClient) AddSubIssue(_ context.Context, parentNodeID, childNodeID string) error {
	if m.failLink {
		return errors.New("addSubIssue: not available")
	}
	// replaceParent semantics: later calls overwrite the relation
	m.links[childNodeID] = parentNodeID
	return nil
}

func twoIssueRoadmap() types.Roadmap {
	return types.Roadmap{
		Repository: "owner/repo",
		Phases: []types.Phase{
			{
				Name:        "Phase 0: Prep & Hardening",
				Description: "Stabilize X",
				Duration:    "2-3 weeks",
				Epic: types.Epic{
					Body:   "Epic body",
					Labels: []string{"epic", "phase-0"},
					Children: []types.Issue{
						{Title: "A", Body: "Body A", Labels: []string{"enhancement"}},
						{Title: "B", Body: "Body B"},
					},
				},
			},
		},
	}
}

func TestApply_BasicRoadmap(t *testing.T) {
	mock := newMockClient()
	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.MilestonesCreated)
	assert.Equal(t, 1, report.EpicsCreated)
	assert.Equal(t, 2, report.IssuesCreated)
	assert.Equal(t, 2, report.IssuesLinked)
	assert.Empty(t, report.Failures)

	// Milestone 10, epic 11, children 12 and 13
	require.Equal(t, []string{"Epic: Phase 0: Prep & Hardening", "A", "B"}, mock.createdIssues)
	assert.Contains(t, mock.bodies[12], "**Parent Epic:** #11")
	assert.Contains(t, mock.bodies[13], "**Parent Epic:** #11")

	// Both children formally linked under the epic
	assert.Equal(t, "node-11", mock.links["node-12"])
	assert.Equal(t, "node-11", mock.links["node-13"])

	// Labels applied via follow-up calls
	assert.Equal(t, []string{"epic", "phase-0"}, mock.labels[11])
	assert.Equal(t, []string{"enhancement"}, mock.labels[12])
}

func TestApply_MilestoneFailureSkipsPhase(t *testing.T) {
	mock := newMockClient()
	mock.failMilestones["Phase 0: Prep & Hardening"] = true

	roadmap := twoIssueRoadmap()
	roadmap.Phases = append(roadmap.Phases, types.Phase{
		Name: "Phase 1: Cloud",
		Epic: types.Epic{
			Children: []types.Issue{{Title: "C", Body: "Body C"}},
		},
	})

	report, err := Apply(context.Background(), mock, roadmap, Options{})
	require.NoError(t, err)

	// Nothing from the failed phase, second phase unaffected
	assert.Equal(t, 1, report.PhasesSkipped)
	assert.Equal(t, 1, report.MilestonesCreated)
	assert.Equal(t, 1, report.EpicsCreated)
	assert.Equal(t, 1, report.IssuesCreated)
	assert.Equal(t, []string{"Epic: Phase 1: Cloud", "C"}, mock.createdIssues)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpMilestone, report.Failures[0].Op)
	assert.Equal(t, "Phase 0: Prep & Hardening", report.Failures[0].Title)
}

func TestApply_EpicFailureSkipsChildren(t *testing.T) {
	mock := newMockClient()
	mock.failIssues["Epic: Phase 0: Prep & Hardening"] = true

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.MilestonesCreated)
	assert.Equal(t, 0, report.EpicsCreated)
	assert.Equal(t, 1, report.EpicsSkipped)
	assert.Equal(t, 0, report.IssuesCreated)
	assert.Empty(t, mock.createdIssues)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpEpic, report.Failures[0].Op)
}

func TestApply_ChildFailureDoesNotAbortSiblings(t *testing.T) {
	mock := newMockClient()
	mock.failIssues["A"] = true

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.IssuesCreated)
	assert.Contains(t, mock.createdIssues, "B")
	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpIssue, report.Failures[0].Op)
	assert.Equal(t, "A", report.Failures[0].Title)
}

func TestApply_LabelFailureDoesNotFailIssue(t *testing.T) {
	mock := newMockClient()
	mock.failLabels["enhancement"] = true

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	// Issue "A" still created and linked despite its label failing
	assert.Equal(t, 2, report.IssuesCreated)
	assert.Equal(t, 2, report.IssuesLinked)
	assert.Contains(t, mock.createdIssues, "A")

	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpLabel, report.Failures[0].Op)
	assert.Equal(t, "enhancement", report.Failures[0].Title)
	assert.Equal(t, 12, report.Failures[0].Number)
}

func TestApply_LinkFailureStillCreatesIssues(t *testing.T) {
	mock := newMockClient()
	mock.failLink = true

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.IssuesCreated)
	assert.Equal(t, 0, report.IssuesLinked)
	assert.Len(t, report.Failures, 2)
	// Body reference still present even without the formal relation
	assert.Contains(t, mock.bodies[12], "**Parent Epic:** #11")
}

func TestApply_EpicResolveFailureSkipsLinkingOnly(t *testing.T) {
	mock := newMockClient()
	mock.failResolve[11] = true // the epic's number

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.IssuesCreated)
	assert.Equal(t, 0, report.IssuesLinked)
	assert.Empty(t, mock.links)
}

func TestApply_InvalidRepository(t *testing.T) {
	mock := newMockClient()
	roadmap := twoIssueRoadmap()
	roadmap.Repository = "invalid-no-slash"

	_, err := Apply(context.Background(), mock, roadmap, Options{})
	require.Error(t, err)
}

func TestApply_DryRun(t *testing.T) {
	mock := newMockClient()
	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.MilestonesCreated)
	assert.Equal(t, 0, report.IssuesCreated)
	assert.Empty(t, mock.createdIssues)
	assert.Empty(t, mock.links)
}

func TestApply_ExplicitEpicTitle(t *testing.T) {
	mock := newMockClient()
	roadmap := twoIssueRoadmap()
	roadmap.Phases[0].Epic.Title = "Epic: Phase 0 - Prep & Hardening"

	_, err := Apply(context.Background(), mock, roadmap, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Epic: Phase 0 - Prep & Hardening", mock.createdIssues[0])
}

// Progress must land on the configured writer only; serve relies on this
// to keep stdout as a pure JSON-RPC channel.
func TestApply_ProgressGoesToWriterNotStdout(t *testing.T) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	var buf bytes.Buffer
	_, applyErr := Apply(context.Background(), newMockClient(), twoIssueRoadmap(), Options{Out: &buf})

	w.Close()
	os.Stdout = origStdout
	require.NoError(t, applyErr)

	leaked, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, string(leaked))

	assert.Contains(t, buf.String(), "Milestone #10")
	assert.Contains(t, buf.String(), "Epic #11")
}

func TestReport_FailureMessageSerialized(t *testing.T) {
	mock := newMockClient()
	mock.failMilestones["Phase 0: Prep & Hardening"] = true

	report, err := Apply(context.Background(), mock, twoIssueRoadmap(), Options{})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"422 Validation Failed"`)
	assert.Contains(t, string(data), `"phases_skipped":1`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	long := strings.Repeat("abcde", 30)
	got := truncate(long, 100)
	assert.Len(t, got, 103)
	assert.Equal(t, "...", got[100:])
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// 3-byte runes; 100 is not a multiple of 3, so a byte slice would
	// split a rune
	long := strings.Repeat("界", 40)
	got := truncate(long, 100)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 103)
}
