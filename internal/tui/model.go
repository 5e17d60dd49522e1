package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/interaction"
	"storefront/internal/recommend"
)

// StorefrontPort is the TUI-facing subset of the storefront service.
type StorefrontPort interface {
	Bootstrap(ctx context.Context) error
	LoadProducts(ctx context.Context) error
	Visible() []domain.Product
	Facets() catalog.Facets
	Filter() catalog.FilterState
	Sort() catalog.SortState
	SetSearch(text string)
	ToggleCategory(c string)
	ToggleTag(t string)
	SetPriceRange(lo, hi float64) error
	ClearPriceRange()
	CycleSortKey() catalog.SortState
	ToggleDirection() catalog.SortState
	ClearFilters()
	SelectedUser() (domain.User, bool)
	NextUser() (domain.User, error)
	Trigger(ctx context.Context, productID int, kind domain.InteractionKind) (interaction.Record, error)
	InteractionState(productID int, kind domain.InteractionKind) interaction.Record
	Recommendations(ctx context.Context) ([]recommend.Card, error)
}

// RecordMsg reports an interaction state change. The recorder listener
// forwards it with Program.Send.
type RecordMsg struct {
	Record interaction.Record
}

type loadedMsg struct{ err error }

type recsMsg struct {
	cards []recommend.Card
	err   error
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modePrice
	modeFacets
	modeRecs
)

// facetItem is one row in the facet panel.
type facetItem struct {
	tag   bool
	value string
}

// Model is the Bubble Tea model for the storefront.
type Model struct {
	ctx      context.Context
	service  StorefrontPort
	mode     mode
	search   textinput.Model
	price    textinput.Model
	viewport viewport.Model
	help     help.Model

	visible     []domain.Product
	cursor      int
	facetCursor int
	cards       []recommend.Card
	recCursor   int
	expanded    bool

	status  string
	loading bool
	ready   bool
	width   int
	height  int
}

// New creates a new TUI model instance.
func New(ctx context.Context, service StorefrontPort) Model {
	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "search name, description, category"
	si.CharLimit = 0

	pi := textinput.New()
	pi.Prompt = "price> "
	pi.Placeholder = "min-max, empty to clear"
	pi.CharLimit = 32

	return Model{
		ctx:      ctx,
		service:  service,
		search:   si,
		price:    pi,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		status:   "Loading catalog...",
		loading:  true,
	}
}

// Init starts the initial catalog and user load.
func (m Model) Init() tea.Cmd {
	return m.load(m.service.Bootstrap)
}

func (m Model) load(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return loadedMsg{err: fn(ctx)} }
}

func (m Model) fetchRecs() tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		cards, err := svc.Recommendations(ctx)
		return recsMsg{cards: cards, err: err}
	}
}

// Update handles key, window and service events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d products", len(m.service.Visible()))
		}
		m.refresh()
		return m, nil
	case recsMsg:
		m.loading = false
		m.cards, m.recCursor, m.expanded = msg.cards, 0, false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d recommendations", len(msg.cards))
		}
		m.refresh()
		return m, nil
	case RecordMsg:
		if msg.Record.State == interaction.Failed {
			m.status = "Error: " + msg.Record.Message
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modePrice:
			return m.updatePrice(msg)
		case modeFacets:
			return m.updateFacets(msg)
		case modeRecs:
			return m.updateRecs(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor - 1 + len(m.visible)) % len(m.visible)
		}
	case key.Matches(msg, keys.Down):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor + 1) % len(m.visible)
		}
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.service.Filter().Search)
		m.resize()
		return m, m.search.Focus()
	case key.Matches(msg, keys.Price):
		m.mode = modePrice
		m.price.SetValue(formatRange(m.service.Filter().Price))
		m.resize()
		return m, m.price.Focus()
	case key.Matches(msg, keys.Facets):
		m.mode = modeFacets
		m.facetCursor = 0
	case key.Matches(msg, keys.Sort):
		st := m.service.CycleSortKey()
		m.status = "Sorted by " + describeSort(st)
	case key.Matches(msg, keys.Direction):
		st := m.service.ToggleDirection()
		m.status = "Sorted by " + describeSort(st)
	case key.Matches(msg, keys.Clear):
		m.service.ClearFilters()
		m.cursor = 0
		m.status = "Filters cleared"
	case key.Matches(msg, keys.User):
		u, err := m.service.NextUser()
		if err != nil {
			m.status = "Error: " + err.Error()
		} else {
			m.status = "Shopping as " + u.Name
		}
	case key.Matches(msg, keys.View):
		m.trigger(domain.InteractionView)
	case key.Matches(msg, keys.Cart):
		m.trigger(domain.InteractionCart)
	case key.Matches(msg, keys.Purchase):
		m.trigger(domain.InteractionPurchase)
	case key.Matches(msg, keys.Like):
		m.trigger(domain.InteractionLike)
	case key.Matches(msg, keys.Recs):
		m.mode = modeRecs
		m.loading = true
		m.status = "Loading recommendations..."
		m.refresh()
		return m, m.fetchRecs()
	case key.Matches(msg, keys.Reload):
		m.loading = true
		m.status = "Reloading catalog..."
		return m, m.load(m.service.LoadProducts)
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) trigger(kind domain.InteractionKind) {
	p, ok := m.current()
	if !ok {
		return
	}
	_, err := m.service.Trigger(m.ctx, p.ID, kind)
	switch {
	case errors.Is(err, interaction.ErrPending):
		// already in flight
	case errors.Is(err, interaction.ErrNoUserSelected):
		m.status = "Select a user first (u)"
	case err != nil:
		m.status = "Error: " + err.Error()
	default:
		m.status = fmt.Sprintf("%s %s...", actionVerb(kind), p.Name)
	}
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.mode = modeBrowse
		m.search.Blur()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.service.SetSearch(m.search.Value())
	m.cursor = 0
	m.refresh()
	return m, cmd
}

func (m Model) updatePrice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.price.Blur()
		m.resize()
		return m, nil
	case tea.KeyEnter:
		raw := strings.TrimSpace(m.price.Value())
		if raw == "" {
			m.service.ClearPriceRange()
			m.status = "Price filter cleared"
		} else {
			lo, hi, err := parseRange(raw)
			if err == nil {
				err = m.service.SetPriceRange(lo, hi)
			}
			if err != nil {
				m.status = "Error: " + err.Error()
				return m, nil
			}
			m.status = fmt.Sprintf("Price %.2f to %.2f", lo, hi)
		}
		m.mode = modeBrowse
		m.price.Blur()
		m.cursor = 0
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.price, cmd = m.price.Update(msg)
	return m, cmd
}

func (m Model) updateFacets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := facetItems(m.service.Facets())
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Facets), key.Matches(msg, keys.Back):
		m.mode = modeBrowse
	case key.Matches(msg, keys.Up):
		if len(items) > 0 {
			m.facetCursor = (m.facetCursor - 1 + len(items)) % len(items)
		}
	case key.Matches(msg, keys.Down):
		if len(items) > 0 {
			m.facetCursor = (m.facetCursor + 1) % len(items)
		}
	case key.Matches(msg, keys.Toggle), msg.Type == tea.KeyEnter:
		if m.facetCursor < len(items) {
			it := items[m.facetCursor]
			if it.tag {
				m.service.ToggleTag(it.value)
			} else {
				m.service.ToggleCategory(it.value)
			}
			m.cursor = 0
		}
	case key.Matches(msg, keys.Clear):
		m.service.ClearFilters()
		m.cursor = 0
	}
	m.refresh()
	return m, nil
}

func (m Model) updateRecs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Recs):
		m.mode = modeBrowse
	case key.Matches(msg, keys.Up):
		if len(m.cards) > 0 {
			m.recCursor = (m.recCursor - 1 + len(m.cards)) % len(m.cards)
			m.expanded = false
		}
	case key.Matches(msg, keys.Down):
		if len(m.cards) > 0 {
			m.recCursor = (m.recCursor + 1) % len(m.cards)
			m.expanded = false
		}
	case key.Matches(msg, keys.Expand):
		m.expanded = !m.expanded
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return m, m.fetchRecs()
	}
	m.refresh()
	return m, nil
}

// refresh recomputes the visible list and the detail pane.
func (m *Model) refresh() {
	m.visible = m.service.Visible()
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
	m.viewport.SetContent(m.renderDetail())
}

func (m Model) current() (domain.Product, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return domain.Product{}, false
	}
	return m.visible[m.cursor], true
}

func facetItems(f catalog.Facets) []facetItem {
	items := make([]facetItem, 0, len(f.Categories)+len(f.Tags))
	for _, c := range f.Categories {
		items = append(items, facetItem{value: c})
	}
	for _, t := range f.Tags {
		items = append(items, facetItem{tag: true, value: t})
	}
	return items
}

// parseRange reads "min-max", "min-" or "-max".
func parseRange(s string) (float64, float64, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("price range %q: want min-max", s)
	}
	from, to := 0.0, catalog.DefaultPriceCeiling
	var err error
	if lo = strings.TrimSpace(lo); lo != "" {
		if from, err = strconv.ParseFloat(lo, 64); err != nil {
			return 0, 0, fmt.Errorf("price range %q: bad minimum", s)
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if to, err = strconv.ParseFloat(hi, 64); err != nil {
			return 0, 0, fmt.Errorf("price range %q: bad maximum", s)
		}
	}
	return from, to, nil
}

func formatRange(r catalog.PriceRange) string {
	if !r.Bounded {
		return ""
	}
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

func describeSort(st catalog.SortState) string {
	return st.Key.String() + " " + st.Direction.String()
}

func actionVerb(kind domain.InteractionKind) string {
	switch kind {
	case domain.InteractionCart:
		return "Adding"
	case domain.InteractionPurchase:
		return "Buying"
	case domain.InteractionLike:
		return "Liking"
	default:
		return "Viewing"
	}
}
