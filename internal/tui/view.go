package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"storefront/internal/domain"
	"storefront/internal/interaction"
	"storefront/internal/recommend"
)

var (
	listBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	detailBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	tierStyles = map[recommend.Tier]lipgloss.Style{
		recommend.Low:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		recommend.Medium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		recommend.High:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

const (
	barWidth  = 20
	nameWidth = 32
)

var actionKinds = []domain.InteractionKind{
	domain.InteractionView,
	domain.InteractionCart,
	domain.InteractionPurchase,
	domain.InteractionLike,
}

// View renders the header, the list pane, the detail pane and the footer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	parts := []string{m.renderHeader()}
	switch m.mode {
	case modeFacets:
		parts = append(parts, listBoxStyle.Render(m.renderFacets()))
	case modeRecs:
		parts = append(parts, listBoxStyle.Render(m.renderRecList()))
	default:
		parts = append(parts, listBoxStyle.Render(m.renderList()))
	}
	parts = append(parts, detailBoxStyle.Render(m.viewport.View()))
	switch m.mode {
	case modeSearch:
		parts = append(parts, inputBoxStyle.Render(m.search.View()))
	case modePrice:
		parts = append(parts, inputBoxStyle.Render(m.price.View()))
	}
	status := statusStyle.Render(m.status)
	if strings.HasPrefix(m.status, "Error:") {
		status = errorStyle.Render(m.status)
	}
	parts = append(parts, status, m.help.View(keys))
	return strings.Join(parts, "\n")
}

// resize splits the remaining height between the list and detail panes.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	_, lh := listBoxStyle.GetFrameSize()
	_, dh := detailBoxStyle.GetFrameSize()
	reserved := 1 + 1 + lipgloss.Height(m.help.View(keys)) + lh + dh // header + status
	if m.mode == modeSearch || m.mode == modePrice {
		_, ih := inputBoxStyle.GetFrameSize()
		reserved += 1 + ih
	}
	avail := max(6, m.height-reserved)
	w, _ := detailBoxStyle.GetFrameSize()
	m.viewport.Width = max(20, m.width-w)
	m.viewport.Height = max(3, avail-m.listHeight())
	m.search.Width = max(10, m.width-10)
	m.viewport.SetContent(m.renderDetail())
}

func (m Model) listHeight() int {
	_, lh := listBoxStyle.GetFrameSize()
	_, dh := detailBoxStyle.GetFrameSize()
	avail := m.height - 3 - lh - dh
	return max(3, avail/2)
}

func (m Model) renderHeader() string {
	user := "no user"
	if u, ok := m.service.SelectedUser(); ok {
		user = u.Name
	}
	st := m.service.Sort()
	f := m.service.Filter()
	var filters []string
	if s := strings.TrimSpace(f.Search); s != "" {
		filters = append(filters, fmt.Sprintf("%q", s))
	}
	for _, c := range slices.Sorted(maps.Keys(f.Categories)) {
		filters = append(filters, "category:"+c)
	}
	for _, t := range slices.Sorted(maps.Keys(f.Tags)) {
		filters = append(filters, "tag:"+t)
	}
	if f.Price.Bounded {
		filters = append(filters, "price:"+formatRange(f.Price))
	}
	line := headerStyle.Render("Storefront") + "  " + dimStyle.Render(fmt.Sprintf("user: %s  sort: %s", user, describeSort(st)))
	if len(filters) > 0 {
		line += "  " + dimStyle.Render("filters: "+strings.Join(filters, " "))
	}
	return line
}

// window returns the [start, end) slice of n rows that keeps cursor visible.
func window(cursor, n, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	start := min(max(0, cursor-height/2), n-height)
	return start, start + height
}

func (m Model) renderList() string {
	if m.loading && len(m.visible) == 0 {
		return "Loading..."
	}
	if len(m.visible) == 0 {
		return "No products match."
	}
	start, end := window(m.cursor, len(m.visible), m.listHeight())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		p := m.visible[i]
		row := fmt.Sprintf("%s %9.2f  %s", padCell(p.Name, nameWidth), p.Price, ratingLabel(p))
		if i == m.cursor {
			lines = append(lines, cursorStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFacets() string {
	items := facetItems(m.service.Facets())
	if len(items) == 0 {
		return "No facets."
	}
	f := m.service.Filter()
	start, end := window(m.facetCursor, len(items), m.listHeight())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		it := items[i]
		label, set := "category", f.Categories
		if it.tag {
			label, set = "tag", f.Tags
		}
		mark := "[ ]"
		if _, ok := set[it.value]; ok {
			mark = "[x]"
		}
		row := fmt.Sprintf("%s %-8s %s", mark, label, it.value)
		if i == m.facetCursor {
			lines = append(lines, cursorStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRecList() string {
	if m.loading {
		return "Loading recommendations..."
	}
	if len(m.cards) == 0 {
		return "No recommendations."
	}
	start, end := window(m.recCursor, len(m.cards), m.listHeight())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := m.cards[i]
		tier := tierStyles[c.Tier].Render(fmt.Sprintf("%3d%% %-6s", c.Percent, c.Tier))
		row := fmt.Sprintf("%s %s", tier, truncateCell(c.Product.Name, 40))
		if i == m.recCursor {
			lines = append(lines, cursorStyle.Render("> ")+row)
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail() string {
	if m.mode == modeRecs {
		return m.renderCard()
	}
	p, ok := m.current()
	if !ok {
		return "Nothing selected."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(p.Name))
	fmt.Fprintf(&b, "\n%.2f  %s", p.Price, ratingLabel(p))
	if p.Category != "" {
		b.WriteString("  " + dimStyle.Render(p.Category))
	}
	if len(p.Tags) > 0 {
		b.WriteString("\n" + dimStyle.Render("#"+strings.Join(p.Tags, " #")))
	}
	if p.Description != "" {
		b.WriteString("\n\n" + p.Description)
	}
	b.WriteString("\n\n")
	badges := make([]string, 0, len(actionKinds))
	for _, k := range actionKinds {
		badges = append(badges, badge(k, m.service.InteractionState(p.ID, k)))
	}
	b.WriteString(strings.Join(badges, "  "))
	return b.String()
}

func (m Model) renderCard() string {
	if m.recCursor >= len(m.cards) {
		return ""
	}
	c := m.cards[m.recCursor]
	var b strings.Builder
	b.WriteString(headerStyle.Render(c.Product.Name))
	fmt.Fprintf(&b, "  %s\n", tierStyles[c.Tier].Render(fmt.Sprintf("%d%% match (%s)", c.Percent, c.Tier)))
	if c.Explanation != "" {
		text := c.Explanation
		if m.expanded {
			text = c.Full
		}
		b.WriteString("\n" + text)
		if c.Truncated && !m.expanded {
			b.WriteString(" " + dimStyle.Render("[e] more"))
		}
		b.WriteString("\n")
	}
	if len(c.Factors) > 0 {
		b.WriteString("\n")
		for _, f := range c.Factors {
			filled := int(f.Fill()*barWidth + 0.5)
			bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
			fmt.Fprintf(&b, "%s %-20s %s %d%%\n", f.Icon, f.Label, bar, f.Percent)
		}
	}
	return b.String()
}

// badge shows an action's optimistic flag and its request state.
func badge(kind domain.InteractionKind, rec interaction.Record) string {
	label := map[domain.InteractionKind][2]string{
		domain.InteractionView:     {"[v] view", "Viewed"},
		domain.InteractionCart:     {"[a] add to cart", "In cart"},
		domain.InteractionPurchase: {"[b] buy", "Purchased!"},
		domain.InteractionLike:     {"[l] like", "Liked"},
	}[kind]
	text := label[0]
	if rec.Active {
		text = label[1]
	}
	switch rec.State {
	case interaction.Pending:
		return pendingStyle.Render(text + " …")
	case interaction.Success:
		return successStyle.Render(text + " ✓")
	case interaction.Failed:
		return errorStyle.Render(text + " ✗")
	default:
		return text
	}
}

func ratingLabel(p domain.Product) string {
	if p.AverageRating == nil {
		return dimStyle.Render("unrated")
	}
	return fmt.Sprintf("★ %.1f", *p.AverageRating)
}

// truncateCell shortens s to at most n terminal columns, ending with an
// ellipsis when cut. Wide runes count as two columns.
func truncateCell(s string, n int) string {
	return runewidth.Truncate(s, n, recommend.Ellipsis)
}

// padCell truncates s to n columns and right-pads it to exactly n.
func padCell(s string, n int) string {
	return runewidth.FillRight(truncateCell(s, n), n)
}
