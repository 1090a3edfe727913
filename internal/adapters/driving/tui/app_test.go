package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// stubPipeline implements driving.Pipeline for testing.
type stubPipeline struct {
	report domain.RunReport
	err    error
	status driving.RunStatus
}

func (s *stubPipeline) Run(_ context.Context, _ driving.RunOptions) (domain.RunReport, error) {
	return s.report, s.err
}

func (s *stubPipeline) Status() driving.RunStatus {
	return s.status
}

func newTestApp(t *testing.T, pipeline *stubPipeline) *App {
	t.Helper()
	app, err := NewApp(context.Background(), pipeline, driving.RunOptions{})
	require.NoError(t, err)
	t.Cleanup(app.cancel)
	return app
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(context.Background(), &stubPipeline{}, driving.RunOptions{})

	require.NoError(t, err)
	require.NotNil(t, app)
	app.cancel()
}

func TestNewApp_MissingPipeline(t *testing.T) {
	app, err := NewApp(context.Background(), nil, driving.RunOptions{})

	assert.ErrorIs(t, err, ErrMissingPipeline)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	cmd := app.Init()

	// Init returns a batch command
	assert.NotNil(t, cmd)
}

func TestApp_Update_WindowSize(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 200, Height: 50})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.Equal(t, 200, app.width)
	assert.Equal(t, maxBarWidth, app.bar.Width)

	app.Update(tea.WindowSizeMsg{Width: 40, Height: 50})
	assert.Equal(t, 36, app.bar.Width)
}

func TestApp_Update_StatusTick(t *testing.T) {
	pipeline := &stubPipeline{status: driving.RunStatus{
		Running: true,
		Stage:   domain.StageLoad,
	}}
	app := newTestApp(t, pipeline)

	_, cmd := app.Update(tickMsg(time.Now()))

	assert.Equal(t, domain.StageLoad, app.status.Stage)
	// A new poll is scheduled
	assert.NotNil(t, cmd)
}

func TestApp_Update_Done(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})
	report := domain.RunReport{ID: "run-9", Stage: domain.StageDone}

	_, cmd := app.Update(doneMsg{report: report})

	assert.True(t, app.done)
	assert.Equal(t, "run-9", app.report.ID)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_CancelKey(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.Nil(t, cmd)
	assert.True(t, app.cancelling)
	assert.ErrorIs(t, app.ctx.Err(), context.Canceled)
}

func TestApp_Update_CtrlC(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, app.cancelling)
	assert.ErrorIs(t, app.ctx.Err(), context.Canceled)
}

func TestApp_View_ShowsTitle(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	assert.Contains(t, app.View(), "Dataset refresh")
}

func TestApp_View_MarksDryRun(t *testing.T) {
	app, err := NewApp(context.Background(), &stubPipeline{}, driving.RunOptions{DryRun: true})
	require.NoError(t, err)
	defer app.cancel()

	assert.Contains(t, app.View(), "Dataset refresh (dry run)")
}

func TestApp_View_ShowsStage(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})
	app.status = driving.RunStatus{Running: true, Stage: domain.StageLoad}

	assert.Contains(t, app.View(), "Loading source")

	app.status = driving.RunStatus{Running: true, Stage: domain.StageDiff, TotalRows: 120}
	assert.Contains(t, app.View(), "Diffing 120 rows against the ledger")
}

func TestApp_View_ShowsEnrichProgress(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})
	app.status = driving.RunStatus{
		Running:      true,
		Stage:        domain.StageEnrich,
		NewRows:      12,
		EnrichedRows: 4,
		SentinelRows: 1,
	}

	view := app.View()

	assert.Contains(t, view, "Enriching")
	assert.Contains(t, view, "5/12 records, 1 sentinel")
}

func TestApp_View_ShowsCancelling(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})
	app.cancelling = true

	assert.Contains(t, app.View(), "Cancelling, waiting for the run to settle")
}

func TestApp_View_EmptyWhenDone(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})
	app.done = true

	assert.Empty(t, app.View())
}

func TestApp_Percent(t *testing.T) {
	app := newTestApp(t, &stubPipeline{})

	assert.Zero(t, app.percent())

	app.status = driving.RunStatus{NewRows: 10, EnrichedRows: 4, SentinelRows: 1}
	assert.InDelta(t, 0.5, app.percent(), 0.001)
}

func TestStageLine_Defaults(t *testing.T) {
	assert.Equal(t, "Starting", stageLine(driving.RunStatus{}))
	assert.Equal(t, "Finishing", stageLine(driving.RunStatus{Stage: domain.StageDone}))
	assert.Equal(t, "Diffing against the ledger", stageLine(driving.RunStatus{Stage: domain.StageDiff}))
}
