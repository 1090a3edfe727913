// Package tui renders live pipeline run progress in the terminal.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driving/tui/styles"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// statusInterval is how often the view polls run progress.
const statusInterval = 100 * time.Millisecond

// maxBarWidth caps the progress bar so counters stay on one line.
const maxBarWidth = 60

// doneMsg carries the finished run back to the model.
type doneMsg struct {
	report domain.RunReport
	err    error
}

// tickMsg triggers a status poll.
type tickMsg time.Time

// keyMap defines the key bindings for the progress view.
type keyMap struct {
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "cancel the run"),
		),
	}
}

// App drives one pipeline run while rendering its progress, following
// the Elm architecture. It implements tea.Model for use with Bubbletea.
type App struct {
	// pipeline executes the run.
	pipeline driving.Pipeline

	// opts configures the run.
	opts driving.RunOptions

	// ctx bounds the run; cancel aborts it when the user quits early.
	ctx    context.Context
	cancel context.CancelFunc

	// styles holds the TUI styles.
	styles *styles.Styles

	// keys holds the key bindings.
	keys keyMap

	// spinner animates while a stage is in flight.
	spinner spinner.Model

	// bar renders enrichment progress.
	bar progress.Model

	// status is the latest progress snapshot.
	status driving.RunStatus

	// report and err hold the run outcome once done.
	report domain.RunReport
	err    error

	// cancelling is set after the user asks to stop.
	cancelling bool

	// done is set when the run has settled.
	done bool

	// width is the terminal width.
	width int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the progress application for one run.
func NewApp(ctx context.Context, pipeline driving.Pipeline, opts driving.RunOptions) (*App, error) {
	if pipeline == nil {
		return nil, ErrMissingPipeline
	}

	s := styles.DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	bar := progress.New(progress.WithDefaultGradient())

	ctx, cancel := context.WithCancel(ctx)

	return &App{
		pipeline: pipeline,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		styles:   s,
		keys:     defaultKeyMap(),
		spinner:  sp,
		bar:      bar,
	}, nil
}

// Init implements tea.Model.
// It starts the run and the progress polling.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.runCmd(), tickCmd())
}

// runCmd executes the pipeline run and delivers its outcome.
func (a *App) runCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := a.pipeline.Run(a.ctx, a.opts)
		return doneMsg{report: report, err: err}
	}
}

// tickCmd schedules the next status poll.
func tickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.bar.Width = min(msg.Width-4, maxBarWidth)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Cancel) {
			// Abort the run and wait for its report rather than
			// quitting immediately: the pipeline settles the run
			// record before returning.
			a.cancelling = true
			a.cancel()
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		a.status = a.pipeline.Status()
		return a, tickCmd()

	case doneMsg:
		a.done = true
		a.report = msg.report
		a.err = msg.err
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.done {
		// The run command prints the outcome after the program exits.
		return ""
	}

	var b strings.Builder

	title := "Dataset refresh"
	if a.opts.DryRun {
		title += " (dry run)"
	}
	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case a.cancelling:
		b.WriteString(a.spinner.View())
		b.WriteString(a.styles.Warning.Render("Cancelling, waiting for the run to settle"))
		b.WriteString("\n")

	case a.status.Stage == domain.StageEnrich && a.status.NewRows > 0:
		b.WriteString(a.spinner.View())
		b.WriteString(a.styles.Normal.Render("Enriching"))
		b.WriteString("\n\n")
		b.WriteString(a.bar.ViewAs(a.percent()))
		b.WriteString("\n")
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf(
			"%d/%d records, %d sentinel",
			a.status.Done(), a.status.NewRows, a.status.SentinelRows)))
		b.WriteString("\n")

	default:
		b.WriteString(a.spinner.View())
		b.WriteString(a.styles.Normal.Render(stageLine(a.status)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render(
		a.keys.Cancel.Help().Key + " " + a.keys.Cancel.Help().Desc))
	b.WriteString("\n")

	return b.String()
}

// percent is the settled share of the diff set.
func (a *App) percent() float64 {
	if a.status.NewRows == 0 {
		return 0
	}
	return float64(a.status.Done()) / float64(a.status.NewRows)
}

// stageLine describes the current stage for the progress view.
func stageLine(status driving.RunStatus) string {
	switch status.Stage {
	case domain.StageLoad:
		return "Loading source"
	case domain.StageDiff:
		if status.TotalRows > 0 {
			return fmt.Sprintf("Diffing %d rows against the ledger", status.TotalRows)
		}
		return "Diffing against the ledger"
	case domain.StageEnrich:
		return "Enriching"
	case domain.StagePublish:
		return "Publishing"
	case domain.StageDone, domain.StageFailed:
		return "Finishing"
	default:
		return "Starting"
	}
}

// RunProgress executes one pipeline run while rendering live progress.
// It blocks until the run settles and returns its report. Cancelling
// the view aborts the run through its context.
func RunProgress(ctx context.Context, pipeline driving.Pipeline, opts driving.RunOptions) (domain.RunReport, error) {
	app, err := NewApp(ctx, pipeline, opts)
	if err != nil {
		return domain.RunReport{}, err
	}
	defer app.cancel()

	p := tea.NewProgram(app)
	final, err := p.Run()
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("rendering progress: %w", err)
	}

	m, ok := final.(*App)
	if !ok {
		return domain.RunReport{}, fmt.Errorf("unexpected model type %T", final)
	}
	return m.report, m.err
}
