package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/fragments/internal/app"
	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/feed"
	"github.com/pders01/fragments/internal/media"
	"github.com/pders01/fragments/internal/news"
	"github.com/pders01/fragments/internal/search"
	"github.com/pders01/fragments/internal/tags"
)

// urlOpener hands a URL to an external program.
type urlOpener interface {
	Open(rawURL string) error
}

// loadMoreThreshold is how close to the end of the card list the cursor
// must be before the next page is requested.
const loadMoreThreshold = 3

type App struct {
	config     *config.Config
	session    *app.Session
	index      *search.Index
	opener     urlOpener
	keyHandler *KeyHandler
	log        *debuglog.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	updates     chan tea.Msg
	unsubscribe []func()

	cardList    list.Model
	tagList     list.Model
	searchList  list.Model
	searchInput textinput.Model
	tagInput    textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view           View
	cameFromSearch bool
	snapshot       feed.Snapshot
	currentCard    *news.Card
	searchSeq      int
	spinning       bool

	status     string
	statusKind StatusKind

	width  int
	height int

	rendererMu    sync.Mutex
	renderer      *glamour.TermRenderer
	rendererWidth int
}

// NewApp builds the UI on top of an opened session. The app subscribes to
// the session's feed controller and tag store; Close releases the
// subscriptions.
func NewApp(cfg *config.Config, session *app.Session) (*App, error) {
	index, err := search.NewIndex()
	if err != nil {
		return nil, failed("creating search index", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:  cfg,
		session: session,
		index:   index,
		opener:  media.NewLauncher(cfg),
		log:     debuglog.Component("tui"),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan tea.Msg, 64),
		view:    ViewCards,
	}
	a.keyHandler = NewKeyHandler(a, cfg)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(PrimaryColor).BorderForeground(PrimaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(AccentColor).BorderForeground(PrimaryColor)

	a.cardList = list.New([]list.Item{}, delegate, 0, 0)
	a.cardList.Title = "Stories"
	a.cardList.SetShowHelp(false)
	a.cardList.Styles.Title = TitleStyle

	a.tagList = list.New([]list.Item{}, delegate, 0, 0)
	a.tagList.Title = "Topics"
	a.tagList.SetShowHelp(false)
	a.tagList.Styles.Title = TitleStyle

	a.searchList = list.New([]list.Item{}, delegate, 0, 0)
	a.searchList.SetShowTitle(false)
	a.searchList.SetShowHelp(false)
	a.searchList.SetFilteringEnabled(false)

	a.searchInput = textinput.New()
	a.searchInput.Placeholder = "Search loaded stories..."
	a.searchInput.CharLimit = 200

	a.tagInput = textinput.New()
	a.tagInput.Placeholder = "Topic name"
	a.tagInput.CharLimit = 64

	a.viewport = viewport.New(0, 0)

	a.spinner = spinner.New()
	a.spinner.Spinner = spinner.Dot
	a.spinner.Style = lipgloss.NewStyle().Foreground(SecondaryColor)

	ctrl := session.Feed()
	a.snapshot = ctrl.Snapshot()
	a.unsubscribe = append(a.unsubscribe,
		ctrl.Subscribe(index.OnSnapshot),
		ctrl.Subscribe(func(s feed.Snapshot) { a.post(snapshotMsg{snapshot: s}) }),
		session.Tags().Subscribe(func(t []tags.Tag) { a.post(tagsMsg{tags: t}) }),
	)
	return a, nil
}

// post forwards a subscription message to the update loop. Messages are
// dropped when the buffer is full; feedDoneMsg re-reads the final state.
func (a *App) post(msg tea.Msg) {
	select {
	case a.updates <- msg:
	default:
	}
}

// Close cancels in-flight requests and detaches from the session.
func (a *App) Close() error {
	a.cancel()
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
	return a.index.Close()
}

func (a *App) Init() tea.Cmd {
	a.setStatus(MsgStarting, StatusInfo)
	return tea.Batch(
		a.startSession(),
		waitForUpdate(a.updates),
		a.startSpinner(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		if a.view == ViewDetail && a.currentCard != nil {
			return a, a.renderCard(*a.currentCard)
		}
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case snapshotMsg:
		return a, tea.Batch(a.applySnapshot(msg.snapshot), waitForUpdate(a.updates))

	case tagsMsg:
		a.setTags(msg.tags)
		return a, waitForUpdate(a.updates)

	case feedDoneMsg:
		if msg.err != nil {
			a.log.Debugf("feed operation failed: %v", msg.err)
		}
		if n, err := a.index.DocCount(); err == nil {
			a.log.Debugf("search index holds %d cards", n)
		}
		return a, a.applySnapshot(a.session.Feed().Snapshot())

	case tagMutatedMsg:
		a.setTags(a.session.Tags().Tags())
		cmd := a.applySnapshot(a.session.Feed().Snapshot())
		switch {
		case msg.err == nil:
			a.setStatus(msg.status, StatusSuccess)
		case isTagError(msg.err) || a.snapshot.Status != feed.StatusError:
			a.setStatus(errorStatus(msg.err))
		}
		return a, cmd

	case cardLoadedMsg:
		if a.currentCard == nil || a.currentCard.ID != msg.id {
			return a, nil
		}
		if msg.err != nil {
			a.setStatus(errorStatus(msg.err))
			return a, nil
		}
		a.currentCard = msg.card
		a.clearStatus()
		return a, a.renderCard(*msg.card)

	case detailRenderedMsg:
		if a.currentCard == nil || a.currentCard.ID != msg.id {
			return a, nil
		}
		a.viewport.SetContent(msg.content)
		return a, nil

	case searchResultsMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		if msg.err != nil {
			a.setStatus(errorStatus(msg.err))
			return a, nil
		}
		items := make([]list.Item, 0, len(msg.results))
		for _, r := range msg.results {
			items = append(items, searchItem{result: r})
		}
		cmd := a.searchList.SetItems(items)
		switch {
		case len(msg.query) < 2:
			a.clearStatus()
		case len(items) == 0:
			a.setStatus(MsgNoResults, StatusInfo)
		default:
			a.setStatus(MsgResultsCount(len(items)), StatusInfo)
		}
		return a, cmd

	case openedMsg:
		if msg.err != nil {
			a.setStatus(errorStatus(msg.err))
		}
		return a, nil

	case spinner.TickMsg:
		if !a.spinning {
			return a, nil
		}
		if a.snapshot.Status != feed.StatusLoading && !a.currentCardLoading() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// applySnapshot copies controller state into the card list and the status
// bar.
func (a *App) applySnapshot(s feed.Snapshot) tea.Cmd {
	a.snapshot = s

	visible := s.Visible()
	items := make([]list.Item, 0, len(visible))
	for _, c := range visible {
		items = append(items, cardItem{
			card:       c,
			maxSummary: a.config.UI.Card.MaxSummaryLength,
			maxTopics:  a.config.UI.Card.MaxTopics,
		})
	}
	cmds := []tea.Cmd{a.cardList.SetItems(items)}

	switch s.Status {
	case feed.StatusLoading:
		if s.Offset > 0 && len(s.Cards) > 0 {
			a.setStatus(MsgLoadingMore, StatusInfo)
		} else {
			a.setStatus(MsgRefreshing, StatusInfo)
		}
		cmds = append(cmds, a.startSpinner())
	case feed.StatusLoaded:
		if a.status == MsgRefreshing || a.status == MsgLoadingMore || a.status == MsgStarting {
			a.clearStatus()
		}
	case feed.StatusError:
		if a.status == MsgRefreshing || a.status == MsgLoadingMore || a.status == MsgStarting {
			a.clearStatus()
		}
	}
	return tea.Batch(cmds...)
}

func (a *App) setTags(all []tags.Tag) {
	items := make([]list.Item, 0, len(all))
	for _, t := range all {
		items = append(items, tagItem{tag: t})
	}
	a.tagList.SetItems(items)
}

func (a *App) startSpinner() tea.Cmd {
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) currentCardLoading() bool {
	return a.view == ViewDetail && a.status == MsgLoadingCard
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

// alertVisible reports whether the blocking error box is shown.
func (a *App) alertVisible() bool {
	return a.snapshot.Status == feed.StatusError && a.snapshot.Message != ""
}

func (a *App) dismissAlert() tea.Cmd {
	a.session.Feed().ClearError()
	return a.applySnapshot(a.session.Feed().Snapshot())
}

func (a *App) wrapWidth() int {
	w := a.width - 4
	if w > a.config.UI.Card.WordWrapMaxWidth {
		w = a.config.UI.Card.WordWrapMaxWidth
	}
	if w < a.config.UI.Card.WordWrapMinWidth {
		w = a.config.UI.Card.WordWrapMinWidth
	}
	return w
}

func (a *App) resize() {
	h := a.height - 3
	if h < 1 {
		h = 1
	}
	a.cardList.SetSize(a.width, h)
	a.tagList.SetSize(a.width, h)
	a.searchList.SetSize(a.width, h-4)
	a.viewport.Width = a.width
	a.viewport.Height = h - 2
	a.searchInput.Width = a.width - 8
	a.tagInput.Width = a.width - 8
}

// selectedCard returns the card under the cursor in the cards view.
func (a *App) selectedCard() (news.Card, bool) {
	item, ok := a.cardList.SelectedItem().(cardItem)
	if !ok {
		return news.Card{}, false
	}
	return item.card, true
}

func (a *App) selectedTag() (tags.Tag, bool) {
	item, ok := a.tagList.SelectedItem().(tagItem)
	if !ok {
		return tags.Tag{}, false
	}
	return item.tag, true
}

// cardByID looks a card up among the loaded ones.
func (a *App) cardByID(id string) (news.Card, bool) {
	for _, c := range a.snapshot.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return news.Card{}, false
}

// openCard switches to the reader view, rendering the list copy right away
// and fetching the full card in the background.
func (a *App) openCard(card news.Card, fromSearch bool) tea.Cmd {
	c := card
	a.currentCard = &c
	a.cameFromSearch = fromSearch
	a.view = ViewDetail
	a.viewport.SetContent("")
	a.viewport.GotoTop()
	a.setStatus(MsgLoadingCard, StatusInfo)
	return tea.Batch(a.renderCard(c), a.loadCard(c.ID), a.startSpinner())
}

// maybeLoadMore requests the next page once the cursor nears the end of the
// loaded cards.
func (a *App) maybeLoadMore() tea.Cmd {
	if a.view != ViewCards || !a.snapshot.HasMore() || a.snapshot.Status == feed.StatusLoading {
		return nil
	}
	if a.cardList.FilterState() != list.Unfiltered {
		return nil
	}
	n := len(a.cardList.Items())
	if n > 0 && a.cardList.Index() < n-loadMoreThreshold {
		return nil
	}
	return a.loadMore()
}

func (a *App) View() string {
	if a.width == 0 {
		return MsgStarting
	}

	contentHeight := a.height - 2
	var content string
	switch a.view {
	case ViewCards:
		if len(a.cardList.Items()) == 0 && a.snapshot.Status != feed.StatusLoading {
			content = renderCentered(a.width, contentHeight, GetWelcomeMessage())
		} else {
			content = a.cardList.View()
		}
	case ViewDetail:
		title := ""
		if a.currentCard != nil {
			title = a.currentCard.Title
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			renderHeader(CompactLogo+" "+title, "", a.width),
			a.viewport.View(),
		)
	case ViewTags:
		content = a.tagList.View()
	case ViewAddTag:
		content = lipgloss.JoinVertical(lipgloss.Left,
			renderHeader("New topic", "The topic is selected right away", a.width),
			"",
			renderInputFrame(a.tagInput.View(), a.tagInput.Focused(), a.tagInput.Width),
		)
	case ViewSearch:
		content = lipgloss.JoinVertical(lipgloss.Left,
			renderHeader("Search", "Searches the stories loaded so far", a.width),
			renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
			a.searchList.View(),
		)
	}

	if a.alertVisible() {
		content = lipgloss.Place(a.width, contentHeight, lipgloss.Center, lipgloss.Center,
			renderAlert(a.snapshot.Message, a.width/2))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		ContentWrapper(a.width, contentHeight).Render(content),
		a.renderStatusBar(),
		renderHelp(truncateEnd(a.keyHandler.GetHelpForCurrentView(), a.width)),
	)
}

func (a *App) renderStatusBar() string {
	left := a.status
	if left != "" {
		left = a.statusKind.style().Render(left)
		if a.spinning {
			left = a.spinner.View() + " " + left
		}
	}

	right := a.snapshot.Filter.String()
	if a.view == ViewCards {
		right = MsgCardsSummary(len(a.cardList.Items()), len(a.snapshot.Cards), a.snapshot.Total) +
			" • " + right
	}
	right = TimeStyle.Render(truncateMiddle(right, a.width/2))

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBarStyle.Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}
