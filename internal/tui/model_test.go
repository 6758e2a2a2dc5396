package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitalroom/internal/auth"
	"digitalroom/internal/editor"
	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/internal/notice"
	"digitalroom/pkg/domain"
)

type fakeAuth struct{ user *auth.User }

func (f *fakeAuth) SignIn(context.Context, string, string) (auth.Session, error) {
	f.user = &auth.User{Email: "owner@example.com", Name: "Owner"}
	return auth.Session{Token: "t", User: *f.user}, nil
}
func (f *fakeAuth) CurrentUser() *auth.User { return f.user }
func (f *fakeAuth) SignOut()                { f.user = nil }

func toolSchema() editor.Schema {
	return editor.Schema{
		Entity:     "tools",
		Label:      "Tool",
		Table:      "tools",
		TitleField: "name",
		Fields: []editor.Field{
			{Name: "name", Kind: editor.KindString, Required: true},
			{Name: "icon", Kind: editor.KindString},
			{Name: domain.FieldSortOrder, Kind: editor.KindInt},
		},
	}
}

type harness struct {
	model   *Model
	editor  *editor.Editor
	store   *memory.Store
	auth    *fakeAuth
	notices *notice.Recorder
}

func newHarness(t *testing.T, signedIn bool) *harness {
	t.Helper()
	store := memory.NewStore()
	notices := notice.NewRecorder(0)
	ed, err := editor.New(toolSchema(), store, editor.WithNotifier(notices))
	require.NoError(t, err)
	t.Cleanup(ed.Close)
	a := &fakeAuth{}
	if signedIn {
		_, _ = a.SignIn(context.Background(), "", "")
	}
	return &harness{model: New(context.Background(), ed, a, notices), editor: ed, store: store, auth: a, notices: notices}
}

func (h *harness) seed(t *testing.T, name string, order int64) {
	t.Helper()
	_, err := h.store.Insert(context.Background(), "tools", map[string]any{"name": name, domain.FieldSortOrder: order})
	require.NoError(t, err)
}

// run executes cmd synchronously and feeds its message back into the model.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	h.model.Update(cmd())
}

func (h *harness) key(k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := h.model.Update(msg)
	return cmd
}

func TestInitLoadsRecords(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, "Neovim", 20)
	h.seed(t, "Figma", 10)
	h.run(t, h.model.Init())

	view := h.model.View()
	assert.Contains(t, view, "tools (2)")
	assert.Less(t, indexOf(view, "Figma"), indexOf(view, "Neovim"))
	assert.Contains(t, view, "#20")
}

func TestSignedOutHidesAndIgnoresMutations(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, "Neovim", 10)
	h.run(t, h.model.Init())

	assert.NotContains(t, h.model.View(), "n: new")
	assert.Nil(t, h.key("n"))
	assert.Equal(t, editor.Browsing, h.editor.State())
	h.key("d")
	assert.Equal(t, modeList, h.model.mode)
	h.key("e")
	assert.Equal(t, editor.Browsing, h.editor.State())
}

func TestCreateThroughForm(t *testing.T) {
	h := newHarness(t, true)
	h.run(t, h.model.Init())
	assert.Contains(t, h.model.View(), "n: new")

	h.key("n")
	require.Equal(t, modeForm, h.model.mode)
	require.Len(t, h.model.inputs, 3)
	assert.Equal(t, "10", h.model.inputs[2].Value())
	h.key("Vim")
	h.run(t, h.key("enter"))

	assert.Equal(t, modeList, h.model.mode)
	recs := h.editor.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Vim", recs[0].String("name", ""))
	last, ok := h.notices.Last()
	require.True(t, ok)
	assert.Equal(t, notice.LevelSuccess, last.Level)
	assert.Contains(t, h.model.View(), "Vim")
}

func TestInvalidSaveKeepsForm(t *testing.T) {
	h := newHarness(t, true)
	h.run(t, h.model.Init())
	h.key("n")
	h.run(t, h.key("enter"))

	assert.Equal(t, modeForm, h.model.mode)
	assert.Equal(t, editor.Creating, h.editor.State())
	last, _ := h.notices.Last()
	assert.Equal(t, notice.LevelWarning, last.Level)
}

func TestEditAndCancel(t *testing.T) {
	h := newHarness(t, true)
	h.seed(t, "Neovim", 10)
	h.run(t, h.model.Init())

	h.key("e")
	require.Equal(t, modeForm, h.model.mode)
	assert.Equal(t, "Neovim", h.model.inputs[0].Value())
	assert.Contains(t, h.model.View(), "Edit tool")

	h.key("esc")
	assert.Equal(t, modeList, h.model.mode)
	assert.Equal(t, editor.Browsing, h.editor.State())
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t, true)
	h.seed(t, "Neovim", 10)
	h.run(t, h.model.Init())

	h.key("d")
	assert.Contains(t, h.model.View(), `Delete "Neovim"? (y/n)`)
	h.key("n")
	assert.Len(t, h.editor.Records(), 1)

	h.key("d")
	h.run(t, h.key("y"))
	assert.Empty(t, h.editor.Records())
	assert.Contains(t, h.model.View(), "nothing here yet")
}

func TestSortKeyCyclesFields(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, "Neovim", 10)
	h.seed(t, "Figma", 20)
	h.run(t, h.model.Init())

	h.key("s")
	field, desc := h.editor.SortState()
	assert.Equal(t, "name", field)
	assert.False(t, desc)
	assert.Equal(t, "Figma", h.editor.Records()[0].String("name", ""))

	h.key("S")
	_, desc = h.editor.SortState()
	assert.True(t, desc)
	assert.Contains(t, h.model.View(), "sorted by name desc")
}

func TestQuit(t *testing.T) {
	h := newHarness(t, false)
	cmd := h.key("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, h.model.View())
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
