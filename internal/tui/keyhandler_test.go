package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/tags"
)

func typeText(a *App, text string) {
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// selectTag moves the topic cursor onto the named tag.
func selectTag(t *testing.T, a *App, name string) tags.Tag {
	t.Helper()
	for i, item := range a.tagList.Items() {
		if ti := item.(tagItem); ti.tag.Name == name {
			a.tagList.Select(i)
			return ti.tag
		}
	}
	t.Fatalf("tag %q not in list", name)
	return tags.Tag{}
}

func TestKeyHandler_ModifierKey(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	assert.Equal(t, "ctrl+s", a.keyHandler.modifierKey("s"))

	cfg := config.TestConfig()
	cfg.Keys.Modifier = "alt"
	kh := NewKeyHandler(a, cfg)
	assert.Equal(t, "alt+t", kh.modifierKey("t"))

	cfg.Keys.Modifier = ""
	kh = NewKeyHandler(a, cfg)
	assert.Equal(t, "ctrl+t", kh.modifierKey("t"))
}

func TestKeyHandler_ViewNavigation(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	start(t, a)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, ViewTags, a.view)
	assert.Len(t, a.tagList.Items(), len(tags.Predefined))

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, ViewAddTag, a.view)
	assert.True(t, a.tagInput.Focused())

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewTags, a.view)
	assert.False(t, a.tagInput.Focused())

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewCards, a.view)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, ViewSearch, a.view)

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewCards, a.view)
	assert.False(t, a.searchInput.Focused())
}

func TestKeyHandler_Quit(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKeyHandler_TypingInSearchDoesNotQuit(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	typeText(a, "q")
	assert.Equal(t, ViewSearch, a.view)
	assert.Equal(t, "q", a.searchInput.Value())
}

func TestKeyHandler_ToggleTag(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{cards: makeStories(6)})
	start(t, a)
	require.Len(t, a.cardList.Items(), 5)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	selectTag(t, a, "AI")

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	a.Update(cmd())

	tag, ok := a.session.Tags().Lookup("AI")
	require.True(t, ok)
	assert.True(t, tag.IsSelected)
	assert.Equal(t, MsgTagToggled("AI", true), a.status)
	assert.Equal(t, "ai", a.snapshot.Filter.Key())
	assert.Len(t, a.snapshot.Cards, 3, "only AI stories are fetched")
	assert.Contains(t, a.tagList.Items()[1].(tagItem).Title(), "[x]")

	// Space toggles as well.
	selectTag(t, a, "AI")
	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	require.NotNil(t, cmd)
	a.Update(cmd())
	assert.Equal(t, "", a.snapshot.Filter.Key())
	assert.Len(t, a.snapshot.Cards, 5)
}

func TestKeyHandler_AddTag(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	start(t, a)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	typeText(a, "Rust")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ViewTags, a.view)
	a.Update(cmd())

	tag, ok := a.session.Tags().Lookup("rust")
	require.True(t, ok)
	assert.True(t, tag.IsCustom)
	assert.True(t, tag.IsSelected)
	assert.Equal(t, MsgTagAdded("Rust"), a.status)
	assert.Equal(t, StatusSuccess, a.statusKind)
}

func TestKeyHandler_AddDuplicateTag(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	start(t, a)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	typeText(a, "ai")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	a.Update(cmd())

	assert.Equal(t, StatusWarn, a.statusKind)
	assert.Contains(t, a.status, "already exists")
	assert.Len(t, a.session.Tags().Tags(), len(tags.Predefined))
}

func TestKeyHandler_AddBlankTagIsIgnored(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	start(t, a)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	typeText(a, "   ")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, ViewTags, a.view)
}

func TestKeyHandler_RemoveTag(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})
	start(t, a)
	_, err := a.session.Tags().AddCustom("Rust")
	require.NoError(t, err)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})

	selectTag(t, a, "Technology")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, cmd)
	assert.Equal(t, StatusWarn, a.statusKind)

	selectTag(t, a, "Rust")
	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	require.NotNil(t, cmd)
	a.Update(cmd())

	_, ok := a.session.Tags().Lookup("rust")
	assert.False(t, ok)
	assert.Equal(t, MsgTagRemoved, a.status)
}

func TestKeyHandler_RefreshSetsStatus(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{cards: makeStories(2)})

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.Equal(t, MsgRefreshing, a.status)

	a.Update(a.refresh()())
	assert.Empty(t, a.status)
	assert.Len(t, a.cardList.Items(), 2)
}

func TestKeyHandler_GetHelpForCurrentView(t *testing.T) {
	a, _ := newTestApp(t, &stubFetcher{})

	tests := []struct {
		view View
		want string
	}{
		{ViewCards, "ctrl+r: refresh"},
		{ViewDetail, "ctrl+l: source"},
		{ViewTags, "ctrl+x: remove custom"},
		{ViewAddTag, "enter: add"},
		{ViewSearch, "type to search"},
	}
	for _, tt := range tests {
		t.Run(tt.view.String(), func(t *testing.T) {
			a.view = tt.view
			assert.Contains(t, a.keyHandler.GetHelpForCurrentView(), tt.want)
		})
	}
}
