// Package tui is the live terminal dashboard `dataforge run --tui` attaches
// to a running pipeline. It is read-only: it polls the Scheduler's public
// counters on a ticker, never touching pipeline internals directly.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgekiln/dataforge/internal/pipeline"
)

const pollInterval = 200 * time.Millisecond

type tickMsg time.Time

type doneMsg struct{}

var tableColumns = []table.Column{
	{Title: "Stage", Width: 22},
	{Title: "Pool", Width: 5},
	{Title: "Queue", Width: 6},
	{Title: "Processed", Width: 10},
	{Title: "Rejected", Width: 9},
	{Title: "State", Width: 6},
}

// Model renders one row per Stage in a bubbles/table.Model: pool size,
// queue depth, processed and rejected counters, and idle/busy state.
type Model struct {
	sched    *pipeline.Scheduler
	cancel   context.CancelFunc
	done     <-chan struct{}
	table    table.Model
	started  time.Time
	finished bool
}

// New returns a dashboard Model bound to sched. cancel requests the run
// interrupt, wired to the q/ctrl+c/esc keys below, the same outcome an OS
// SIGINT produces. done is closed once the run returns; the dashboard quits
// on its own at that point rather than needing the operator to also quit it.
func New(sched *pipeline.Scheduler, cancel context.CancelFunc, done <-chan struct{}) Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rowsFor(sched)),
		table.WithFocused(false),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(colorMuted).BorderForeground(colorBorder)
	styles.Selected = styles.Selected.Foreground(colorAccent)
	t.SetStyles(styles)

	return Model{sched: sched, cancel: cancel, done: done, table: t, started: time.Now()}
}

func rowsFor(sched *pipeline.Scheduler) []table.Row {
	if sched == nil {
		return nil
	}
	stages := sched.Stages()
	rows := make([]table.Row, 0, len(stages))
	for _, st := range stages {
		state := busyStyle.Render("busy")
		if st.IsIdle() {
			state = idleStyle.Render("idle")
		}
		rows = append(rows, table.Row{
			st.Task().Name(),
			strconv.Itoa(st.PoolSize()),
			strconv.Itoa(st.QueueLen()),
			strconv.FormatInt(st.Processed(), 10),
			strconv.FormatInt(st.Rejected(), 10),
			state,
		})
	}
	return rows
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForDone(m.done))
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.table.SetRows(rowsFor(m.sched))
		return m, tick()
	case doneMsg:
		m.finished = true
		m.table.SetRows(rowsFor(m.sched))
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	title := "dataforge"
	if m.finished {
		title += " (finished)"
	}

	body := titleStyle.Render(title) + "\n\n" + m.table.View() + "\n\n" +
		helpStyle.Render(fmt.Sprintf("elapsed %s · q to interrupt", time.Since(m.started).Round(time.Second)))

	return boxStyle.Render(body)
}
