// Package ui provides the optional terminal interface.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/shell"
	"github.com/nibzard/nextup/internal/utils"
)

// Form fields of the add dialog.
const (
	fieldName = iota
	fieldPriority
	fieldDue
	fieldDeps
	fieldCount
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	blockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RunTUI starts the terminal UI over sched.
func RunTUI(ctx context.Context, sched *scheduler.Scheduler) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newTUIModel(ctx, sched)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type tuiModel struct {
	ctx    context.Context
	sched  *scheduler.Scheduler
	items  []scheduler.Item
	cursor int

	adding    bool
	formField int
	inputs    []textinput.Model

	showHelp bool
	notice   string
	err      string
}

func newTUIModel(ctx context.Context, sched *scheduler.Scheduler) *tuiModel {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 40
		inputs[i].CharLimit = 200
		inputs[i].PromptStyle = helpStyle
		switch i {
		case fieldName:
			inputs[i].Placeholder = "Task name"
		case fieldPriority:
			inputs[i].Placeholder = "Priority (integer, lower runs first)"
			inputs[i].CharLimit = 12
		case fieldDue:
			inputs[i].Placeholder = "Due date (YYYY-MM-DD)"
			inputs[i].CharLimit = 10
		case fieldDeps:
			inputs[i].Placeholder = "Dependencies (comma-separated)"
		}
	}

	m := &tuiModel{ctx: ctx, sched: sched, inputs: inputs}
	m.refresh()
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.adding {
		return m.updateForm(key)
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "c", "enter":
		m.completeSelected()
	case "n":
		m.jumpToNext()
	case "a":
		m.openForm()
		return m, textinput.Blink
	case "r", "f5":
		m.notice, m.err = "", ""
		m.refresh()
	case "h", "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *tuiModel) updateForm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeForm()
		return m, nil
	case "tab", "down":
		m.focusField((m.formField + 1) % fieldCount)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.focusField((m.formField + fieldCount - 1) % fieldCount)
		return m, textinput.Blink
	case "enter":
		if m.formField < fieldCount-1 {
			m.focusField(m.formField + 1)
			return m, textinput.Blink
		}
		m.submitForm()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.formField], cmd = m.inputs[m.formField].Update(key)
	return m, cmd
}

func (m *tuiModel) refresh() {
	m.items = m.sched.ListPending()
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

func (m *tuiModel) completeSelected() {
	if len(m.items) == 0 {
		return
	}
	name := m.items[m.cursor].Task.Name
	if err := m.sched.Complete(m.ctx, name); err != nil {
		m.notice, m.err = "", shell.Describe(err)
		return
	}
	m.notice, m.err = fmt.Sprintf("Task '%s' marked as completed.", name), ""
	m.refresh()
}

func (m *tuiModel) jumpToNext() {
	next, ok := m.sched.Next()
	if !ok {
		m.notice = ""
		m.err = "No executable tasks."
		if hint := shell.DeadlockHint(m.sched.Diagnose()); hint != "" {
			m.err += " " + hint
		}
		return
	}
	for i, item := range m.items {
		if item.Task.Name == next.Name {
			m.cursor = i
			break
		}
	}
	m.notice, m.err = "Next task: "+shell.FormatTask(next), ""
}

func (m *tuiModel) openForm() {
	m.adding = true
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.focusField(fieldName)
}

func (m *tuiModel) closeForm() {
	m.adding = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *tuiModel) focusField(field int) {
	m.inputs[m.formField].Blur()
	m.formField = field
	m.inputs[m.formField].Focus()
}

func (m *tuiModel) submitForm() {
	priority, err := scheduler.ParsePriority(m.inputs[fieldPriority].Value())
	if err != nil {
		m.err = shell.Describe(err)
		m.focusField(fieldPriority)
		return
	}
	task, err := m.sched.Add(m.ctx,
		m.inputs[fieldName].Value(),
		priority,
		m.inputs[fieldDue].Value(),
		utils.SplitAndTrim(m.inputs[fieldDeps].Value(), ","),
	)
	if err != nil {
		m.err = shell.Describe(err)
		return
	}
	m.closeForm()
	m.notice, m.err = fmt.Sprintf("Task '%s' added.", task.Name), ""
	m.refresh()
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}
	if m.adding {
		m.writeForm(&b)
	} else {
		m.writeList(&b)
	}

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n\n")
	} else if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n\n")
	}
	writeFooter(&b, m.adding)
	return b.String()
}

func (m *tuiModel) writeList(b *strings.Builder) {
	executable := 0
	for _, item := range m.items {
		if item.Executable {
			executable++
		}
	}
	fmt.Fprintf(b, "%s pending, %d executable, %d completed\n\n",
		utils.Plural(len(m.items), "task"), executable, len(m.sched.Completed()))

	if len(m.items) == 0 {
		b.WriteString("  No pending tasks.\n\n")
		return
	}
	for i, item := range m.items {
		line := formatItem(item)
		switch {
		case i == m.cursor:
			line = selectedStyle.Render("> " + line)
		case !item.Executable:
			line = blockedStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) writeForm(b *strings.Builder) {
	b.WriteString("Add Task\n\n")
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View() + "\n")
	}
	b.WriteString("\n")
}

func writeTitle(b *strings.Builder) {
	title := "nextup"
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  j/k, arrows  Move selection\n")
	b.WriteString("  c, enter     Complete selected task\n")
	b.WriteString("  n            Jump to next executable task\n")
	b.WriteString("  a            Add a task\n")
	b.WriteString("  r, F5        Refresh\n")
	b.WriteString("  h, ?         Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder, adding bool) {
	if adding {
		b.WriteString(helpStyle.Render("tab next field | enter submit on last field | esc cancel") + "\n")
		return
	}
	b.WriteString(helpStyle.Render("Press h for help | q to quit") + "\n")
}

func formatItem(item scheduler.Item) string {
	icon := "!"
	if item.Executable {
		icon = " "
	}
	return fmt.Sprintf("%s (P%d) %s  due %s  %s",
		icon, item.Task.Priority, item.Task.Name, item.Task.DueDate, shell.Status(item))
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
