package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/news"
)

// KeyHandler routes key presses to the active view. Action keys are
// combined with the configured modifier; navigation and typing are passed
// through to the bubbles components.
type KeyHandler struct {
	app      *App
	modifier string
	keys     config.KeyBindings
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifier := cfg.Keys.Modifier
	if modifier == "" {
		modifier = "ctrl"
	}
	return &KeyHandler{
		app:      app,
		modifier: modifier,
		keys:     cfg.Keys.Bindings,
	}
}

func (k *KeyHandler) modifierKey(key string) string {
	return k.modifier + "+" + key
}

func (k *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := k.app
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.alertVisible() {
		if key == "enter" || key == k.keys.Back {
			return a, a.dismissAlert()
		}
		return a, nil
	}

	if k.isTextInputMode() {
		return k.handleTextInputMode(msg)
	}

	if model, cmd, handled := k.handleCustomKeys(key); handled {
		return model, cmd
	}

	switch key {
	case k.keys.Quit:
		return a, tea.Quit
	case k.keys.Back:
		return k.navigateBack()
	case "enter":
		return k.handleEnter()
	case " ":
		if a.view == ViewTags {
			return k.handleEnter()
		}
	}

	return k.delegateToCharm(msg)
}

// isTextInputMode reports whether typed characters belong to an input
// rather than to key bindings.
func (k *KeyHandler) isTextInputMode() bool {
	a := k.app
	switch a.view {
	case ViewAddTag:
		return true
	case ViewSearch:
		return a.searchInput.Focused()
	case ViewCards:
		return a.cardList.FilterState() == list.Filtering
	case ViewTags:
		return a.tagList.FilterState() == list.Filtering
	}
	return false
}

func (k *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := k.app
	key := msg.String()

	switch a.view {
	case ViewAddTag:
		switch key {
		case "esc":
			return k.navigateBack()
		case "enter":
			name := strings.TrimSpace(a.tagInput.Value())
			a.tagInput.Reset()
			a.tagInput.Blur()
			a.view = ViewTags
			if name == "" {
				return a, nil
			}
			return a, a.addTag(name)
		}
		var cmd tea.Cmd
		a.tagInput, cmd = a.tagInput.Update(msg)
		return a, cmd

	case ViewSearch:
		switch key {
		case "esc":
			return k.navigateBack()
		case "enter", "down", "tab":
			if len(a.searchList.Items()) == 0 {
				return a, nil
			}
			a.searchInput.Blur()
			if key == "enter" {
				return k.handleEnter()
			}
			return a, nil
		}
		before := a.searchInput.Value()
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		if after := a.searchInput.Value(); after != before {
			a.searchSeq++
			return a, tea.Batch(cmd, a.performSearch(a.searchSeq, strings.TrimSpace(after)))
		}
		return a, cmd
	}

	return k.delegateToCharm(msg)
}

// handleCustomKeys runs the modifier-bound actions.
func (k *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := k.app

	switch key {
	case k.modifierKey(k.keys.Refresh):
		a.setStatus(MsgRefreshing, StatusInfo)
		return a, tea.Batch(a.refresh(), a.startSpinner()), true

	case k.modifierKey(k.keys.Search):
		return a, k.enterSearchMode(), true

	case k.modifierKey(k.keys.Tags):
		a.view = ViewTags
		a.setTags(a.session.Tags().Tags())
		return a, nil, true

	case k.modifierKey(k.keys.AddTag):
		a.view = ViewAddTag
		a.tagInput.Reset()
		return a, a.tagInput.Focus(), true

	case k.modifierKey(k.keys.RemoveTag):
		if a.view != ViewTags {
			return a, nil, false
		}
		tag, ok := a.selectedTag()
		if !ok {
			return a, nil, true
		}
		if !tag.IsCustom {
			a.setStatus("Only custom topics can be removed; deselect others instead", StatusWarn)
			return a, nil, true
		}
		return a, a.removeTag(tag), true

	case k.modifierKey(k.keys.OpenImage):
		card, ok := k.focusedCard()
		if !ok {
			return a, nil, true
		}
		img := card.Image()
		if img == "" {
			a.setStatus(MsgNoImage, StatusWarn)
			return a, nil, true
		}
		return a, a.openURL(img), true

	case k.modifierKey(k.keys.OpenSource):
		card, ok := k.focusedCard()
		if !ok {
			return a, nil, true
		}
		for _, src := range card.Sources {
			if src.URL != "" {
				return a, a.openURL(src.URL), true
			}
		}
		a.setStatus(MsgNoSource, StatusWarn)
		return a, nil, true
	}

	return a, nil, false
}

func (k *KeyHandler) handleEnter() (tea.Model, tea.Cmd) {
	a := k.app

	switch a.view {
	case ViewCards:
		card, ok := a.selectedCard()
		if !ok {
			return a, nil
		}
		return a, a.openCard(card, false)

	case ViewTags:
		tag, ok := a.selectedTag()
		if !ok {
			return a, nil
		}
		return a, a.toggleTag(tag)

	case ViewSearch:
		item, ok := a.searchList.SelectedItem().(searchItem)
		if !ok {
			return a, nil
		}
		card, ok := a.cardByID(item.result.CardID)
		if !ok {
			a.setStatus("That story is no longer loaded", StatusWarn)
			return a, nil
		}
		return a, a.openCard(card, true)
	}
	return a, nil
}

func (k *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := k.app
	var cmd tea.Cmd

	switch a.view {
	case ViewCards:
		a.cardList, cmd = a.cardList.Update(msg)
		return a, tea.Batch(cmd, a.maybeLoadMore())
	case ViewTags:
		a.tagList, cmd = a.tagList.Update(msg)
	case ViewSearch:
		if msg.String() == "up" && a.searchList.Index() == 0 {
			return a, a.searchInput.Focus()
		}
		a.searchList, cmd = a.searchList.Update(msg)
	case ViewDetail:
		a.viewport, cmd = a.viewport.Update(msg)
	}
	return a, cmd
}

func (k *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := k.app

	switch a.view {
	case ViewDetail:
		a.currentCard = nil
		if a.status == MsgLoadingCard {
			a.clearStatus()
		}
		if a.cameFromSearch {
			a.view = ViewSearch
		} else {
			a.view = ViewCards
		}
		a.cameFromSearch = false
	case ViewAddTag:
		a.tagInput.Reset()
		a.tagInput.Blur()
		a.view = ViewTags
	case ViewSearch:
		a.searchInput.Blur()
		a.clearStatus()
		a.view = ViewCards
	case ViewTags:
		a.view = ViewCards
	}
	return a, nil
}

func (k *KeyHandler) enterSearchMode() tea.Cmd {
	a := k.app
	a.view = ViewSearch
	a.searchInput.Reset()
	a.searchList.SetItems(nil)
	a.searchSeq++
	return a.searchInput.Focus()
}

// focusedCard is the card the open actions apply to: the one being read, or
// the one under the cursor.
func (k *KeyHandler) focusedCard() (news.Card, bool) {
	a := k.app
	switch a.view {
	case ViewDetail:
		if a.currentCard != nil {
			return *a.currentCard, true
		}
	case ViewCards:
		return a.selectedCard()
	}
	return news.Card{}, false
}

func (k *KeyHandler) GetHelpForCurrentView() string {
	m := k.modifierKey
	switch k.app.view {
	case ViewCards:
		return strings.Join([]string{
			"enter: read",
			m(k.keys.Refresh) + ": refresh",
			m(k.keys.Tags) + ": topics",
			m(k.keys.Search) + ": search",
			m(k.keys.OpenImage) + ": image",
			"/: filter",
			k.keys.Quit + ": quit",
		}, " • ")
	case ViewDetail:
		return strings.Join([]string{
			"↑/↓: scroll",
			m(k.keys.OpenImage) + ": image",
			m(k.keys.OpenSource) + ": source",
			k.keys.Back + ": back",
		}, " • ")
	case ViewTags:
		return strings.Join([]string{
			"enter/space: toggle",
			m(k.keys.AddTag) + ": new topic",
			m(k.keys.RemoveTag) + ": remove custom",
			k.keys.Back + ": back",
		}, " • ")
	case ViewAddTag:
		return "enter: add • esc: cancel"
	case ViewSearch:
		return "type to search • ↓: results • enter: read • esc: back"
	}
	return ""
}
