package tui

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type model struct {
	title         string
	messages      []Message
	selectedIdx   int
	width, height int
	showRaw       bool

	// Vim command state
	vimKeys VimKeyState

	// Search
	searchMode      bool
	searchQuery     string
	searchInput     textinput.Model
	searchResults   []int
	searchResultIdx int

	// UI state
	splitRatio  float64
	compactMode bool
	showHelp    bool

	// Components
	detailViewport viewport.Model

	// Status messages (brief confirmations)
	statusMsg     string
	statusMsgTime time.Time
}

type clearStatusMsg struct{}

func initialModel(title string, msgs []Message) model {
	si := textinput.New()
	si.Placeholder = "Search..."
	si.CharLimit = 100
	si.Width = 30

	return model{
		title:          title,
		messages:       msgs,
		vimKeys:        NewVimKeyState(),
		splitRatio:     0.4,
		searchInput:    si,
		detailViewport: viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Handle search mode input
		if m.searchMode {
			switch msg.String() {
			case "esc":
				m.searchMode = false
				m.searchQuery = ""
				m.searchResults = nil
				m.searchInput.Blur()
				return m, nil
			case "enter":
				m.searchMode = false
				m.searchQuery = m.searchInput.Value()
				m.searchInput.Blur()
				m.performSearch()
				return m, nil
			default:
				var cmd tea.Cmd
				m.searchInput, cmd = m.searchInput.Update(msg)
				return m, cmd
			}
		}

		// Handle help overlay
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
				m.showHelp = false
			}
			return m, nil
		}

		// Handle special keys that bypass vim handler
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+u":
			m.moveBy(-m.visibleItems() / 2)
			return m, nil
		case "ctrl+d":
			m.moveBy(m.visibleItems() / 2)
			return m, nil
		case "ctrl+j":
			m.detailViewport.YOffset++
			return m, nil
		case "ctrl+k":
			if m.detailViewport.YOffset > 0 {
				m.detailViewport.YOffset--
			}
			return m, nil
		case "up":
			m.moveBy(-1)
			return m, nil
		case "down":
			m.moveBy(1)
			return m, nil
		}

		// Process through vim key handler
		result := m.vimKeys.ProcessKey(msg.String())
		if result.Action == "pending" {
			return m, nil
		}

		switch result.Action {
		case "move_down":
			m.moveBy(result.Count)
		case "move_up":
			m.moveBy(-result.Count)
		case "go_top":
			m.selectedIdx = 0
			m.detailViewport.YOffset = 0
		case "go_bottom":
			if len(m.messages) > 0 {
				m.selectedIdx = len(m.messages) - 1
				m.detailViewport.YOffset = 0
			}
		case "next_subqueue":
			m.jumpToNextSubQueue()
		case "search_start":
			m.searchMode = true
			m.searchInput.SetValue("")
			m.searchInput.Focus()
			return m, textinput.Blink
		case "search_next":
			m.nextSearchResult()
		case "search_prev":
			m.prevSearchResult()
		case "yank":
			return m, m.yankMessage()
		case "export":
			return m, m.exportMessages()
		case "toggle_raw":
			m.showRaw = !m.showRaw
		case "toggle_compact":
			m.compactMode = !m.compactMode
		case "toggle_help":
			m.showHelp = !m.showHelp
		case "resize_left":
			if m.splitRatio > 0.2 {
				m.splitRatio -= 0.05
			}
		case "resize_right":
			if m.splitRatio < 0.8 {
				m.splitRatio += 0.05
			}
		case "quit":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		contentHeight := m.height - 5 // header(3) + status(1) + help(1)
		if contentHeight < 3 {
			contentHeight = 3
		}
		listWidth := int(float64(m.width) * m.splitRatio)
		if listWidth < 20 {
			listWidth = 20
		}
		detailWidth := m.width - listWidth - 1
		if detailWidth < 20 {
			detailWidth = 20
		}

		m.detailViewport.Width = detailWidth - 4
		m.detailViewport.Height = contentHeight - 2

	case clearStatusMsg:
		m.statusMsg = ""
	}

	return m, nil
}

func (m *model) moveBy(delta int) {
	newIdx := m.selectedIdx + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(m.messages) {
		newIdx = len(m.messages) - 1
	}
	if newIdx < 0 {
		newIdx = 0
	}

	// Reset detail scroll when selection changes
	if newIdx != m.selectedIdx {
		m.detailViewport.YOffset = 0
	}

	m.selectedIdx = newIdx
}

// jumpToNextSubQueue moves to the first message of the other sub-queue,
// which is the start of the DLQ section when sitting in ACTIVE and vice
// versa. Wraps around.
func (m *model) jumpToNextSubQueue() {
	if len(m.messages) == 0 {
		return
	}
	current := m.messages[m.selectedIdx].SubQueue
	for i := m.selectedIdx + 1; i < len(m.messages); i++ {
		if m.messages[i].SubQueue != current {
			m.selectedIdx = i
			m.detailViewport.YOffset = 0
			return
		}
	}
	for i := 0; i < m.selectedIdx; i++ {
		if m.messages[i].SubQueue != current {
			m.selectedIdx = i
			m.detailViewport.YOffset = 0
			return
		}
	}
}

func (m model) visibleItems() int {
	items := m.height - 6
	if items < 1 {
		return 1
	}
	return items
}

func (m *model) performSearch() {
	m.searchResults = nil
	m.searchResultIdx = 0
	if m.searchQuery == "" {
		return
	}

	query := strings.ToLower(m.searchQuery)
	for i, msg := range m.messages {
		if matchesQuery(msg, query) {
			m.searchResults = append(m.searchResults, i)
		}
	}

	// Jump to first result
	if len(m.searchResults) > 0 {
		m.selectedIdx = m.searchResults[0]
		m.detailViewport.YOffset = 0
	}
}

func matchesQuery(msg Message, query string) bool {
	if strings.Contains(strings.ToLower(msg.Subject), query) {
		return true
	}
	if strings.Contains(strings.ToLower(msg.MessageID), query) {
		return true
	}
	if strings.Contains(strings.ToLower(msg.Props), query) {
		return true
	}
	return strings.Contains(strings.ToLower(msg.Body), query)
}

func (m *model) nextSearchResult() {
	if len(m.searchResults) == 0 {
		return
	}
	m.searchResultIdx = (m.searchResultIdx + 1) % len(m.searchResults)
	m.selectedIdx = m.searchResults[m.searchResultIdx]
	m.detailViewport.YOffset = 0
}

func (m *model) prevSearchResult() {
	if len(m.searchResults) == 0 {
		return
	}
	m.searchResultIdx--
	if m.searchResultIdx < 0 {
		m.searchResultIdx = len(m.searchResults) - 1
	}
	m.selectedIdx = m.searchResults[m.searchResultIdx]
	m.detailViewport.YOffset = 0
}

func (m *model) yankMessage() tea.Cmd {
	if len(m.messages) == 0 || m.selectedIdx >= len(m.messages) {
		return nil
	}

	msg := m.messages[m.selectedIdx]
	content := msg.Props + "\n-- body --\n" + msg.Body

	if err := clipboard.WriteAll(content); err != nil {
		return m.setStatusMsg("Copy failed: " + err.Error())
	}
	return m.setStatusMsg("Copied to clipboard")
}

func (m *model) exportMessages() tea.Cmd {
	if len(m.messages) == 0 {
		return m.setStatusMsg("No messages to export")
	}

	type exportMessage struct {
		SubQueue   string          `json:"sub_queue"`
		Index      int             `json:"index"`
		Properties json.RawMessage `json:"properties"`
		Body       string          `json:"body"`
		RawBody    string          `json:"raw_body,omitempty"`
	}

	exports := make([]exportMessage, len(m.messages))
	for i, msg := range m.messages {
		exports[i] = exportMessage{
			SubQueue:   msg.SubQueue,
			Index:      msg.Index,
			Properties: json.RawMessage(msg.Props),
			Body:       msg.Body,
		}
		if len(msg.RawBody) > 0 {
			exports[i].RawBody = base64.StdEncoding.EncodeToString(msg.RawBody)
		}
	}

	filename := fmt.Sprintf("sbpeek-export-%s.json", time.Now().Format("20060102-150405"))
	data, _ := json.MarshalIndent(exports, "", "  ")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return m.setStatusMsg("Export failed: " + err.Error())
	}
	return m.setStatusMsg(fmt.Sprintf("Exported to %s", filename))
}

func (m *model) setStatusMsg(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusMsgTime = time.Now()
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	contentHeight := m.height - 5
	if contentHeight < 3 {
		contentHeight = 3
	}

	listWidth := int(float64(m.width) * m.splitRatio)
	if listWidth < 20 {
		listWidth = 20
	}
	detailWidth := m.width - listWidth - 1
	if detailWidth < 20 {
		detailWidth = 20
	}

	header := headerStyle.Width(m.width - 2).Render(m.title)
	status := m.renderStatusBar()

	messageList := m.renderMessageList(listWidth, contentHeight)
	detailPanel := m.renderDetailPanel(detailWidth, contentHeight)

	content := lipgloss.JoinHorizontal(lipgloss.Top, messageList, detailPanel)

	var bottomBar string
	if m.searchMode {
		bottomBar = m.renderSearchBar()
	} else {
		bottomBar = m.renderHelpBar()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, status, content, bottomBar)
}

func (m model) renderStatusBar() string {
	active, dlq := 0, 0
	for _, msg := range m.messages {
		if msg.SubQueue == "DLQ" {
			dlq++
		} else {
			active++
		}
	}

	counts := statusBarStyle.Render(fmt.Sprintf("Active: %d", active)) +
		dlqTagStyle.Render(fmt.Sprintf("  DLQ: %d", dlq))

	position := ""
	if len(m.messages) > 0 {
		position = statusBarStyle.Render(fmt.Sprintf("%d/%d", m.selectedIdx+1, len(m.messages)))
	}

	searchStatus := ""
	if m.searchQuery != "" {
		if len(m.searchResults) > 0 {
			searchStatus = statusBarStyle.Render(fmt.Sprintf(" [%d/%d]", m.searchResultIdx+1, len(m.searchResults)))
		} else {
			searchStatus = mutedStyle.Render(" (no matches)")
		}
	}

	statusMsgDisplay := ""
	if m.statusMsg != "" && time.Since(m.statusMsgTime) < 3*time.Second {
		statusMsgDisplay = "  " + confirmationStyle.Render(m.statusMsg)
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		counts,
		searchStatus,
		statusMsgDisplay,
		"  │  ",
		position,
	)
}

func (m model) renderMessageList(width, height int) string {
	innerHeight := height - 2
	if innerHeight < 1 {
		innerHeight = 1
	}

	if len(m.messages) == 0 {
		emptyContent := strings.Join([]string{
			"",
			emptyStateStyle.Render("No messages peeked"),
			"",
			mutedStyle.Render("Press ? for help"),
		}, "\n")
		return messageListStyle.Width(width).Height(height).Render(emptyContent)
	}

	startIdx := 0
	if m.selectedIdx >= innerHeight {
		startIdx = m.selectedIdx - innerHeight + 1
	}

	endIdx := startIdx + innerHeight
	if endIdx > len(m.messages) {
		endIdx = len(m.messages)
	}

	items := make([]string, 0, innerHeight)
	innerWidth := width - 4

	for i := startIdx; i < endIdx; i++ {
		msg := m.messages[i]

		prefix := "  "
		if i == m.selectedIdx {
			prefix = "> "
		}

		tag := activeTagStyle.Render("ACT")
		if msg.SubQueue == "DLQ" {
			tag = dlqTagStyle.Render("DLQ")
		}

		var line string
		if m.compactMode {
			label := truncate(listLabel(msg), innerWidth-8)
			line = fmt.Sprintf("%s%s %s", prefix, tag, label)
		} else {
			ts := ""
			if !msg.Enqueued.IsZero() {
				ts = timestampStyle.Render(msg.Enqueued.UTC().Format("15:04:05"))
			}
			label := truncate(listLabel(msg), innerWidth-18)
			line = fmt.Sprintf("%s%s #%-3d %s %s", prefix, tag, msg.Index, ts, label)
		}

		if i == m.selectedIdx {
			line = selectedMessageStyle.Render(line)
		}

		items = append(items, line)
	}

	content := strings.Join(items, "\n")
	return messageListStyle.Width(width).Height(height).Render(content)
}

// listLabel picks the most descriptive short identifier for the list row.
func listLabel(msg Message) string {
	if msg.Subject != "" {
		return msg.Subject
	}
	if msg.MessageID != "" {
		return msg.MessageID
	}
	return "(no subject)"
}

func (m model) renderDetailPanel(width, height int) string {
	innerHeight := height - 2
	if innerHeight < 1 {
		innerHeight = 1
	}

	if len(m.messages) == 0 || m.selectedIdx >= len(m.messages) {
		return detailPanelStyle.Width(width).Height(height).Render(
			mutedStyle.Render("Select a message to view details"),
		)
	}

	msg := m.messages[m.selectedIdx]
	innerWidth := width - 4
	var lines []string

	lines = append(lines, fieldNameStyle.Render(fmt.Sprintf("%s MESSAGE #%d", msg.SubQueue, msg.Index)))
	lines = append(lines, dividerStyle.Render(strings.Repeat("─", innerWidth)))
	lines = append(lines, strings.Split(msg.Props, "\n")...)
	lines = append(lines, "")

	lines = append(lines, fieldNameStyle.Render("BODY"))
	lines = append(lines, dividerStyle.Render(strings.Repeat("─", innerWidth)))

	if m.showRaw {
		if len(msg.RawBody) > 0 {
			lines = append(lines, formatHex(msg.RawBody))
		} else {
			lines = append(lines, errorStyle.Render("raw body unavailable"))
		}
	} else {
		lines = append(lines, strings.Split(msg.Body, "\n")...)
	}

	allLines := strings.Split(strings.Join(lines, "\n"), "\n")

	scrollOffset := m.detailViewport.YOffset
	if scrollOffset < 0 {
		scrollOffset = 0
	}
	if scrollOffset > len(allLines)-innerHeight {
		scrollOffset = len(allLines) - innerHeight
		if scrollOffset < 0 {
			scrollOffset = 0
		}
	}

	endIdx := scrollOffset + innerHeight
	if endIdx > len(allLines) {
		endIdx = len(allLines)
	}

	visibleLines := allLines[scrollOffset:endIdx]
	for len(visibleLines) < innerHeight {
		visibleLines = append(visibleLines, "")
	}

	content := strings.Join(visibleLines, "\n")
	return detailPanelStyle.Width(width).Height(height).Render(content)
}

func (m model) renderSearchBar() string {
	return helpStyle.Render("Search: ") + m.searchInput.View() + helpStyle.Render("  (Enter to search, Esc to cancel)")
}

func (m model) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"j/k", "nav"},
		{"gg/G", "top/end"},
		{"tab", "sub-queue"},
		{"/", "search"},
		{"y", "copy"},
		{"e", "export"},
		{"r", "raw"},
		{"?", "help"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+k.desc)
	}

	return helpStyle.Render(strings.Join(parts, " │ "))
}

func (m model) renderHelpOverlay() string {
	var lines []string

	lines = append(lines, fieldNameStyle.Render("Keybindings"))
	lines = append(lines, "")

	sections := []struct {
		name string
		keys []struct{ key, desc string }
	}{
		{
			name: "Navigation",
			keys: []struct{ key, desc string }{
				{"j / k", "Move down / up"},
				{"5j / 10k", "Move 5 down / 10 up"},
				{"gg", "Go to top"},
				{"G", "Go to bottom"},
				{"Tab", "Jump to other sub-queue"},
				{"Ctrl+U / Ctrl+D", "Half page up / down"},
				{"Ctrl+J / Ctrl+K", "Scroll detail panel"},
			},
		},
		{
			name: "Search",
			keys: []struct{ key, desc string }{
				{"/", "Start search"},
				{"n / N", "Next / previous result"},
				{"Esc", "Clear search"},
			},
		},
		{
			name: "Actions",
			keys: []struct{ key, desc string }{
				{"y", "Copy message to clipboard"},
				{"e", "Export all messages to JSON"},
			},
		},
		{
			name: "View",
			keys: []struct{ key, desc string }{
				{"r", "Toggle raw hex view"},
				{"t", "Toggle compact mode"},
				{"H / L", "Resize panes left / right"},
				{"?", "Toggle this help"},
			},
		},
	}

	for _, section := range sections {
		lines = append(lines, helpCategoryStyle.Render(section.name))
		for _, k := range section.keys {
			lines = append(lines, fmt.Sprintf("  %-18s %s", helpKeyStyle.Render(k.key), k.desc))
		}
		lines = append(lines, "")
	}

	lines = append(lines, mutedStyle.Render("Press ? or Esc to close"))

	content := strings.Join(lines, "\n")

	overlayWidth := 50
	overlayHeight := len(lines) + 4
	if overlayHeight > m.height-4 {
		overlayHeight = m.height - 4
	}

	overlay := helpOverlayStyle.Width(overlayWidth).Render(content)

	hPad := (m.width - overlayWidth) / 2
	vPad := (m.height - overlayHeight) / 2
	if hPad < 0 {
		hPad = 0
	}
	if vPad < 0 {
		vPad = 0
	}

	return lipgloss.NewStyle().
		PaddingLeft(hPad).
		PaddingTop(vPad).
		Render(overlay)
}

func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%02x ", b))
		if i > 500 {
			sb.WriteString("...")
			break
		}
	}
	return sb.String()
}
