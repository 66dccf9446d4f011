package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/fragments/internal/feed"
	"github.com/pders01/fragments/internal/news"
	"github.com/pders01/fragments/internal/search"
	"github.com/pders01/fragments/internal/tags"
)

type snapshotMsg struct {
	snapshot feed.Snapshot
}

type tagsMsg struct {
	tags []tags.Tag
}

// feedDoneMsg is sent when a blocking feed operation returns.
type feedDoneMsg struct {
	err error
}

type tagMutatedMsg struct {
	status string
	err    error
}

type cardLoadedMsg struct {
	id   string
	card *news.Card
	err  error
}

type detailRenderedMsg struct {
	id      string
	content string
}

type searchResultsMsg struct {
	seq     int
	query   string
	results []search.Result
	err     error
}

type openedMsg struct {
	err error
}

// waitForUpdate delivers the next subscription message from the feed
// controller or the tag store.
func waitForUpdate(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (a *App) startSession() tea.Cmd {
	return func() tea.Msg {
		return feedDoneMsg{err: a.session.Start(a.ctx)}
	}
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		return feedDoneMsg{err: a.session.Refresh(a.ctx)}
	}
}

func (a *App) loadMore() tea.Cmd {
	return func() tea.Msg {
		return feedDoneMsg{err: a.session.LoadMore(a.ctx)}
	}
}

func (a *App) toggleTag(tag tags.Tag) tea.Cmd {
	return func() tea.Msg {
		updated, err := a.session.ToggleTag(a.ctx, tag.ID)
		if err != nil {
			return tagMutatedMsg{err: failed("toggling tag", err)}
		}
		return tagMutatedMsg{status: MsgTagToggled(updated.Name, updated.IsSelected)}
	}
}

func (a *App) addTag(name string) tea.Cmd {
	return func() tea.Msg {
		tag, err := a.session.AddTag(a.ctx, name)
		if err != nil {
			return tagMutatedMsg{err: failed("adding tag", err)}
		}
		return tagMutatedMsg{status: MsgTagAdded(tag.Name)}
	}
}

func (a *App) removeTag(tag tags.Tag) tea.Cmd {
	return func() tea.Msg {
		if err := a.session.RemoveTag(a.ctx, tag.ID); err != nil {
			return tagMutatedMsg{err: failed("removing tag", err)}
		}
		return tagMutatedMsg{status: MsgTagRemoved}
	}
}

func (a *App) loadCard(id string) tea.Cmd {
	return func() tea.Msg {
		card, err := a.session.Feed().Card(a.ctx, id)
		return cardLoadedMsg{id: id, card: card, err: err}
	}
}

func (a *App) renderCard(card news.Card) tea.Cmd {
	width := a.wrapWidth()
	return func() tea.Msg {
		md := cardMarkdown(card)
		r, err := a.getRenderer(width)
		if err != nil {
			return detailRenderedMsg{id: card.ID, content: md}
		}
		out, err := r.Render(md)
		if err != nil {
			return detailRenderedMsg{id: card.ID, content: md}
		}
		return detailRenderedMsg{id: card.ID, content: out}
	}
}

func (a *App) performSearch(seq int, query string) tea.Cmd {
	return func() tea.Msg {
		results, err := a.index.Search(query, a.config.Feed.SearchLimit)
		return searchResultsMsg{seq: seq, query: query, results: results, err: failed("search", err)}
	}
}

func (a *App) openURL(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: failed("open", a.opener.Open(url))}
	}
}

func (a *App) getRenderer(width int) (*glamour.TermRenderer, error) {
	a.rendererMu.Lock()
	defer a.rendererMu.Unlock()
	if a.renderer != nil && a.rendererWidth == width {
		return a.renderer, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	a.renderer = r
	a.rendererWidth = width
	return r, nil
}

// cardMarkdown lays a card out as a markdown document for the reader view.
func cardMarkdown(card news.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", card.Title)

	var meta []string
	if t, ok := card.Published(); ok {
		meta = append(meta, t.Local().Format("Monday, January 2 2006 15:04"))
	}
	if len(card.Topics) > 0 {
		meta = append(meta, strings.Join(card.Topics, ", "))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
	}

	if img := card.Image(); img != "" {
		fmt.Fprintf(&b, "Image: %s\n\n", img)
	}

	if body := strings.TrimSpace(card.Body()); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if len(card.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, src := range card.Sources {
			label := src.Title
			if label == "" {
				label = src.URL
			}
			line := fmt.Sprintf("- [%s](%s)", label, src.URL)
			if src.Source != "" {
				line += " · " + src.Source
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(card.RelatedCards) > 0 {
		b.WriteString("## Related\n\n")
		for _, rel := range card.RelatedCards {
			fmt.Fprintf(&b, "- %s\n", rel.Title)
		}
	}
	return b.String()
}
