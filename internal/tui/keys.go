package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Search    key.Binding
	Sort      key.Binding
	Direction key.Binding
	Facets    key.Binding
	Toggle    key.Binding
	Price     key.Binding
	Clear     key.Binding
	User      key.Binding
	View      key.Binding
	Cart      key.Binding
	Purchase  key.Binding
	Like      key.Binding
	Recs      key.Binding
	Expand    key.Binding
	Reload    key.Binding
	Back      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort key")),
	Direction: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "direction")),
	Facets:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "facets")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle facet")),
	Price:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "price range")),
	Clear:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
	User:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "next user")),
	View:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
	Cart:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to cart")),
	Purchase:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
	Like:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
	Recs:      key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "recommendations")),
	Expand:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand")),
	Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Sort, k.Facets, k.Cart, k.Purchase, k.Like, k.Recs, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Search, k.Sort, k.Direction},
		{k.Facets, k.Toggle, k.Price, k.Clear, k.User},
		{k.View, k.Cart, k.Purchase, k.Like},
		{k.Recs, k.Expand, k.Reload, k.Back, k.Quit},
	}
}
