package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"blackout-sim/internal/config"
	"blackout-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an event line for the viewport.
type logMsg struct{ line string }

// sanityMsg carries one decay tick's samples.
type sanityMsg struct{ rows []telemetry.SanityRow }

// stateMsg carries a session state update.
type stateMsg struct{ telemetry.SessionStateRow }

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

type setTriggerMsg struct{ fn func() }
type setItemMsg struct{ fn func(player, item string) }

const (
	maxLogLines = 500
	barWidth    = 10
)

var (
	tuiTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tuiStart   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	tuiEnd     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	tuiFalse   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	tuiStrike  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	tuiKilled  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Reverse(true)
	tuiDivider = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders rows using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. When the
// user quits the program, the process receives an interrupt so the
// simulate command shuts down cleanly.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func tuiStamp(ts time.Time) string {
	return tuiTime.Render("[" + ts.Format(time.RFC3339) + "]")
}

// WriteBlackout implements BlackoutWriter.
func (w *TUIWriter) WriteBlackout(row telemetry.BlackoutRow) error {
	label := tuiStart.Render("BLACKOUT")
	switch row.Event {
	case telemetry.BlackoutEnded:
		label = tuiEnd.Render("RESTORED")
	case telemetry.BlackoutFalseAlarm:
		label = tuiFalse.Render("FALSE ALARM")
	}
	where := strings.Join(row.Zones, ",")
	if row.FacilityWide {
		where = "facility"
	}
	line := fmt.Sprintf("%s %s depth=%d dur=%.0fs zones=%s rooms=%d",
		tuiStamp(row.Timestamp), label, row.StackDepth, row.DurationS, where, len(row.Rooms))
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteDamage implements DamageWriter.
func (w *TUIWriter) WriteDamage(row telemetry.DamageRow) error {
	label := tuiStrike.Render("STRIKE")
	if row.Killed {
		label = tuiKilled.Render("KILLED")
	}
	line := fmt.Sprintf("%s %s %s in %s %.1f->%.1f (%s)",
		tuiStamp(row.Timestamp), label, row.PlayerID, row.Room, row.Raw, row.Final, row.Source)
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteSanity implements SanityWriter.
func (w *TUIWriter) WriteSanity(row telemetry.SanityRow) error {
	return w.WriteSanityBatch([]telemetry.SanityRow{row})
}

// WriteSanityBatch sends one tick's samples as a single update.
func (w *TUIWriter) WriteSanityBatch(rows []telemetry.SanityRow) error {
	w.program.Send(sanityMsg{rows: append([]telemetry.SanityRow(nil), rows...)})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.SessionStateRow) error {
	w.program.Send(stateMsg{SessionStateRow: row})
	return nil
}

// SetAdminStatus updates the admin server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetTrigger registers the callback bound to the trigger key.
func (w *TUIWriter) SetTrigger(fn func()) {
	w.program.Send(setTriggerMsg{fn: fn})
}

// SetItemUser registers the callback used by the item dialog.
func (w *TUIWriter) SetItemUser(fn func(player, item string)) {
	w.program.Send(setItemMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.Config
	table        table.Model
	vp           viewport.Model
	logs         []string
	sanity       map[string]telemetry.SanityRow
	state        telemetry.SessionStateRow
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	header       string
	headerHeight int
	height       int
	itemInput    textinput.Model
	itemDialog   bool
	trigger      func()
	useItem      func(player, item string)
}

func newTUIModel(cfg *config.Config) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	b := cfg.Blackout
	cols := []table.Column{
		{Title: "Config", Width: 18},
		{Title: "Value", Width: 12},
		{Title: "Config", Width: 18},
		{Title: "Value", Width: 12},
	}
	rows := []table.Row{
		{"Delay (s)", fmt.Sprintf("%.0f-%.0f", float64(b.DelayMin), float64(b.DelayMax)),
			"Duration (s)", fmt.Sprintf("%.0f-%.0f", float64(b.DurationMin), float64(b.DurationMax))},
		{"Warning Lead (s)", fmt.Sprintf("%.0f", float64(b.WarningLead)),
			"Hazard Damage", fmt.Sprintf("%.1f", cfg.Hazard.BaseDamage)},
		{"Sanity Decay", fmt.Sprintf("%.2f/s", cfg.Sanity.DecayRateBase),
			"Strike Every (s)", fmt.Sprintf("%.0f", float64(cfg.Sanity.StrikeInterval))},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		sanity:     make(map[string]telemetry.SanityRow),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.itemDialog {
			return m.updateItemDialog(msg)
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "b":
			if m.trigger == nil {
				return m, nil
			}
			fn := m.trigger
			return m, func() tea.Msg { fn(); return nil }
		case "i":
			m.itemInput = textinput.New()
			m.itemInput.Placeholder = "player,item"
			m.itemInput.Focus()
			m.itemDialog = true
			m.updateViewportHeight()
			return m, nil
		case "?", "h":
			m.help = true
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case sanityMsg:
		before := len(m.sanity)
		for _, r := range msg.rows {
			m.sanity[r.PlayerID] = r
		}
		if len(m.sanity) != before {
			m.updateViewportHeight()
		}
	case stateMsg:
		m.state = msg.SessionStateRow
	case adminMsg:
		m.admin = msg.active
	case setTriggerMsg:
		m.trigger = msg.fn
	case setItemMsg:
		m.useItem = msg.fn
	}
	return m, nil
}

func (m tuiModel) updateItemDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.itemDialog = false
		m.updateViewportHeight()
		player, item, ok := strings.Cut(m.itemInput.Value(), ",")
		player, item = strings.TrimSpace(player), strings.TrimSpace(item)
		if !ok || player == "" || item == "" || m.useItem == nil {
			return m, nil
		}
		fn := m.useItem
		return m, func() tea.Msg { fn(player, item); return nil }
	case tea.KeyEsc:
		m.itemDialog = false
		m.updateViewportHeight()
		return m, nil
	}
	var cmd tea.Cmd
	m.itemInput, cmd = m.itemInput.Update(msg)
	return m, cmd
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - m.headerHeight - lipgloss.Height(m.renderSanity()) - lipgloss.Height(m.renderBottom()) - 3
	if m.itemDialog {
		h -= 2
	}
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := tuiDivider.Render(strings.Repeat("─", m.vp.Width))
	sections := []string{m.header, divider, m.vp.View(), divider, m.renderSanity()}
	if m.itemDialog {
		sections = append(sections, divider, "Use item: "+m.itemInput.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	return m.table.View()
}

// sanityBar draws value in [0,100] as a fixed-width bar.
func sanityBar(value float64) string {
	filled := int(value/100*barWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	c := lipgloss.Color("10")
	switch {
	case value <= 20:
		c = lipgloss.Color("9")
	case value <= 50:
		c = lipgloss.Color("11")
	}
	return lipgloss.NewStyle().Foreground(c).Render(strings.Repeat("█", filled)) +
		tuiDivider.Render(strings.Repeat("░", barWidth-filled))
}

func (m tuiModel) renderSanity() string {
	if len(m.sanity) == 0 {
		return "Sanity:\nnone"
	}
	ids := make([]string, 0, len(m.sanity))
	for id := range m.sanity {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lines := []string{"Sanity:"}
	for _, id := range ids {
		r := m.sanity[id]
		dark := ""
		if r.Dark {
			dark = " dark"
		}
		lines = append(lines, fmt.Sprintf("%-12s %s %5.1f %s%s", id, sanityBar(r.Value), r.Value, r.Stage, dark))
	}
	return strings.Join(lines, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	st := m.state
	state := fmt.Sprintf("STATE blackout=%t depth=%d alive=%d dark=%d t=%.0fs",
		st.BlackoutActive, st.StackDepth, st.PlayersAlive, st.DarkRooms, st.ElapsedS)
	return fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | ? help",
		state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q    quit",
		" b    trigger a blackout now",
		" i    use an item (player,item)",
		" w    toggle wrap for the event log",
		" s    toggle auto-scroll",
		" h/?  toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
