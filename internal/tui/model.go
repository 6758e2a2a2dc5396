// Package tui is the terminal admin screen for one archive. It renders an
// editor and dispatches key presses to it.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"digitalroom/internal/auth"
	"digitalroom/internal/editor"
	"digitalroom/internal/icons"
	"digitalroom/internal/notice"
	"digitalroom/pkg/domain"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirm
)

type loadedMsg struct{ err error }
type savedMsg struct{ err error }
type deletedMsg struct{ err error }

// Model is the bubbletea model of the admin screen.
type Model struct {
	ctx     context.Context
	ed      *editor.Editor
	auth    auth.Authenticator
	notices *notice.Recorder

	mode       mode
	cursor     int
	confirmID  domain.ID
	formFields []editor.Field
	inputs     []textinput.Model
	focus      int
	sortFields []string
	sortIdx    int
	quitting   bool
}

// New builds the screen. notices must be the recorder the editor notifies.
func New(ctx context.Context, ed *editor.Editor, authn auth.Authenticator, notices *notice.Recorder) *Model {
	m := &Model{ctx: ctx, ed: ed, auth: authn, notices: notices, sortIdx: -1}
	for _, f := range ed.Schema().Fields {
		switch f.Kind {
		case editor.KindList, editor.KindImages:
		default:
			m.sortFields = append(m.sortFields, f.Name)
		}
	}
	return m
}

func (m *Model) Init() tea.Cmd { return m.loadCmd() }

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg { return loadedMsg{err: m.ed.Load(m.ctx)} }
}

func (m *Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ed.Save(m.ctx)
		return savedMsg{err: err}
	}
}

func (m *Model) deleteCmd(id domain.ID) tea.Cmd {
	return func() tea.Msg { return deletedMsg{err: m.ed.Delete(m.ctx, id, editor.Confirmed)} }
}

func (m *Model) canEdit() bool { return auth.SignedIn(m.auth) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg, deletedMsg:
		m.clampCursor()
		return m, nil
	case savedMsg:
		if m.ed.State() == editor.Browsing {
			m.mode = modeList
			m.inputs = nil
		}
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	if m.mode == modeForm && len(m.inputs) > 0 {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:cyclop
	records := m.ed.Records()
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(records)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadCmd()
	case "s":
		if len(m.sortFields) > 0 {
			m.sortIdx = (m.sortIdx + 1) % len(m.sortFields)
			m.ed.SortBy(m.sortFields[m.sortIdx])
		}
	case "S":
		if field, _ := m.ed.SortState(); field != "" {
			m.ed.SortBy(field)
		}
	case "n":
		if m.canEdit() && m.ed.BeginCreate() == nil {
			return m, m.openForm()
		}
	case "e", "enter":
		if m.canEdit() && m.cursor < len(records) && m.ed.BeginEdit(records[m.cursor]) == nil {
			return m, m.openForm()
		}
	case "d":
		if m.canEdit() && m.cursor < len(records) {
			m.confirmID = records[m.cursor].ID
			m.mode = modeConfirm
		}
	}
	return m, nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeList
		return m, m.deleteCmd(m.confirmID)
	case "n", "N", "esc":
		m.mode = modeList
		m.confirmID = ""
	}
	return m, nil
}

func (m *Model) openForm() tea.Cmd {
	draft, _ := m.ed.Draft()
	m.formFields = m.formFields[:0]
	m.inputs = m.inputs[:0]
	for _, f := range m.ed.Schema().Fields {
		if f.Kind == editor.KindList || f.Kind == editor.KindImages {
			continue
		}
		in := textinput.New()
		in.Prompt = f.DisplayLabel() + ": "
		in.SetValue(formatValue(draft[f.Name]))
		m.formFields = append(m.formFields, f)
		m.inputs = append(m.inputs, in)
	}
	m.focus = 0
	m.mode = modeForm
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[0].Focus()
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.ed.CancelEdit() == nil {
			m.mode = modeList
			m.inputs = nil
		}
		return m, nil
	case "tab", "shift+tab", "down", "up":
		if len(m.inputs) == 0 {
			return m, nil
		}
		dir := 1
		if msg.String() == "shift+tab" || msg.String() == "up" {
			dir = -1
		}
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + dir + len(m.inputs)) % len(m.inputs)
		return m, m.inputs[m.focus].Focus()
	case "enter":
		for i, f := range m.formFields {
			if err := m.ed.UpdateDraftField(f.Name, m.inputs[i].Value()); err != nil {
				return m, nil
			}
		}
		return m, m.saveCmd()
	}
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) clampCursor() {
	n := len(m.ed.Records())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	schema := m.ed.Schema()
	header := fmt.Sprintf("%s (%d)", schema.Entity, len(m.ed.Records()))
	if field, desc := m.ed.SortState(); field != "" {
		dir := "asc"
		if desc {
			dir = "desc"
		}
		header += dimStyle.Render(fmt.Sprintf("  sorted by %s %s", field, dir))
	}
	if m.ed.Busy(editor.OpLoad) {
		header += dimStyle.Render("  loading…")
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		m.viewForm(&b)
	default:
		m.viewList(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return frameStyle.Render(b.String())
}

func (m *Model) viewList(b *strings.Builder) {
	schema := m.ed.Schema()
	_, hasIcon := schema.Field("icon")
	records := m.ed.Records()
	if len(records) == 0 {
		b.WriteString(dimStyle.Render("nothing here yet"))
		b.WriteString("\n")
	}
	for i, r := range records {
		line := schema.Title(r)
		if hasIcon {
			line = icons.Lookup(r.String("icon", "")) + " " + line
		}
		if v, ok := r.Values[domain.FieldSortOrder]; ok && v != nil {
			line += dimStyle.Render(fmt.Sprintf("  #%v", v))
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if m.mode == modeConfirm {
		title := string(m.confirmID)
		if r, ok := m.ed.Record(m.confirmID); ok {
			title = schema.Title(r)
		}
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title)))
		b.WriteString("\n")
	}
}

func (m *Model) viewForm(b *strings.Builder) {
	verb := "New"
	if _, editing := m.ed.EditTarget(); editing {
		verb = "Edit"
	}
	b.WriteString(verb + " " + strings.ToLower(m.ed.Schema().DisplayName()))
	b.WriteString("\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	draft, _ := m.ed.Draft()
	for _, f := range m.ed.Schema().Fields {
		switch items := draft[f.Name].(type) {
		case []map[string]any:
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s: %d item(s)", f.DisplayLabel(), len(items))))
			b.WriteString("\n")
		case []string:
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s: %d item(s)", f.DisplayLabel(), len(items))))
			b.WriteString("\n")
		}
	}
	if m.ed.State() == editor.Submitting {
		b.WriteString(dimStyle.Render("saving…"))
		b.WriteString("\n")
	}
}

func (m *Model) statusLine() string {
	if m.notices == nil {
		return ""
	}
	n, ok := m.notices.Last()
	if !ok {
		return ""
	}
	text := n.Message
	if n.Detail != "" {
		text += ": " + n.Detail
	}
	switch n.Level {
	case notice.LevelSuccess:
		return successStyle.Render(text)
	case notice.LevelWarning:
		return warningStyle.Render(text)
	case notice.LevelError:
		return errorStyle.Render(text)
	default:
		return text
	}
}

func (m *Model) help() string {
	switch m.mode {
	case modeForm:
		return "enter: save  esc: cancel  tab: next field"
	case modeConfirm:
		return "y: delete  n: keep"
	}
	if m.canEdit() {
		return "n: new  e: edit  d: delete  s: sort  S: reverse  r: reload  q: quit"
	}
	return "s: sort  S: reverse  r: reload  q: quit"
}
