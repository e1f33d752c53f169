// Interactive browser for recorded backtest runs.
//
// Usage:
//
//	results                 (uses config/signalbot.yaml)
//	results -db runs.db
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"signalbot/internal/backtest"
	"signalbot/internal/config"
	"signalbot/internal/report"
	"signalbot/internal/store"
)

// Styles.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("236"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func pnlStyle(pct float64) lipgloss.Style {
	if pct < 0 {
		return lossStyle
	}
	return gainStyle
}

// Messages.
type runLoadedMsg struct {
	res *backtest.Result
	err error
}

// Model.
type model struct {
	runs   *store.SQLiteStore
	list   []store.RunSummary
	cursor int

	detail   *backtest.Result
	viewport viewport.Model
	ready    bool

	width, height int
	err           error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) loadRunCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		res, err := m.runs.GetRun(context.Background(), id)
		return runLoadedMsg{res: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.detail != nil {
				m.detail = nil
				return m, nil
			}
			return m, tea.Quit

		case "up", "k":
			if m.detail == nil {
				if m.cursor > 0 {
					m.cursor--
				}
				return m, nil
			}

		case "down", "j":
			if m.detail == nil {
				if m.cursor < len(m.list)-1 {
					m.cursor++
				}
				return m, nil
			}

		case "enter":
			if m.detail == nil && len(m.list) > 0 {
				return m, m.loadRunCmd(m.list[m.cursor].ID)
			}
			return m, nil
		}

		// Detail mode: remaining keys scroll the viewport.
		if m.detail != nil && m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		if m.detail != nil {
			m.viewport.SetContent(renderDetail(m.detail))
		}
		return m, nil

	case runLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail = msg.res
		m.err = nil
		if m.ready {
			m.viewport.SetContent(renderDetail(m.detail))
			m.viewport.GotoTop()
		}
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.detail != nil && m.ready {
		header := titleStyle.Render(fmt.Sprintf("Run #%d  %s  %s",
			currentID(m), m.detail.Config.Symbol, m.detail.Advisor))
		footer := dimStyle.Render("esc back · j/k scroll · q quit")
		return header + "\n" + m.viewport.View() + "\n" + footer
	}
	return m.listView()
}

func currentID(m model) int64 {
	if len(m.list) == 0 {
		return 0
	}
	return m.list[m.cursor].ID
}

func (m model) listView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("BACKTEST RUNS"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(lossStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
	}

	if len(m.list) == 0 {
		b.WriteString(dimStyle.Render("no recorded runs"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-5s %-8s %-10s %-12s %-12s %9s %8s %7s %7s",
		"ID", "SYMBOL", "ADVISOR", "START", "END", "RETURN%", "SHARPE", "DD%", "TRADES")))
	b.WriteString("\n")

	for i, r := range m.list {
		line := fmt.Sprintf("  %-5d %-8s %-10s %-12s %-12s %s %8.2f %7.2f %7d",
			r.ID, r.Symbol, r.Advisor,
			r.Start.Format(backtest.DateFormat),
			r.End.Format(backtest.DateFormat),
			pnlStyle(r.TotalReturnPct).Render(fmt.Sprintf("%+8.2f%%", r.TotalReturnPct)),
			r.SharpeRatio, r.MaxDrawdown, r.TotalTrades)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("j/k move · enter open · q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderDetail(res *backtest.Result) string {
	var b strings.Builder

	b.WriteString(report.Summary(res))
	b.WriteString("\n")

	if len(res.Trades) > 0 {
		b.WriteString(titleStyle.Render("TRADES"))
		b.WriteString("\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-12s %-6s %10s %12s %12s %10s %6s",
			"DATE", "SIDE", "PRICE", "SHARES", "VALUE", "COMMISSION", "CONF")))
		b.WriteString("\n")
		for _, t := range res.Trades {
			b.WriteString(fmt.Sprintf("%-12s %-6s %10.2f %12.4f %12.2f %10.2f %6d\n",
				t.Date.Format(backtest.DateFormat), t.Action, t.Price,
				t.Shares, t.Value, t.Commission, t.Confidence))
			if t.Reason != "" {
				b.WriteString(dimStyle.Render("  " + t.Reason))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func main() {
	cfgPath := "config/signalbot.yaml"
	if len(os.Args) > 2 && os.Args[1] == "-config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dbPath := cfg.Storage.SQLitePath
	if len(os.Args) > 2 && os.Args[1] == "-db" {
		dbPath = os.Args[2]
	}

	runs, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer runs.Close()

	list, err := runs.ListRuns(context.Background())
	if err != nil {
		log.Fatalf("failed to list runs: %v", err)
	}

	p := tea.NewProgram(model{runs: runs, list: list}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "results: %v\n", err)
		os.Exit(1)
	}
}
