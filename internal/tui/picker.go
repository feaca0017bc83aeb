package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle    = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	pickerItemStyle     = lipgloss.NewStyle().PaddingLeft(4)
	pickerSelectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	pickerHelpStyle     = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)

// ChosenMsg is sent when a picker entry is chosen.
type ChosenMsg struct {
	Index int
}

// CanceledMsg is sent when the picker is dismissed without a choice.
type CanceledMsg struct{}

// choiceItem implements list.Item for one picker label.
type choiceItem struct {
	index int
	label string
}

func (i choiceItem) FilterValue() string { return i.label }

type choiceDelegate struct{}

func (d choiceDelegate) Height() int                             { return 1 }
func (d choiceDelegate) Spacing() int                            { return 0 }
func (d choiceDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d choiceDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(choiceItem)
	if !ok {
		return
	}

	str := fmt.Sprintf("%3d  %s", i.index+1, i.label)
	fn := pickerItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return pickerSelectedStyle.Render("> " + strings.Join(s, " "))
		}
	}
	fmt.Fprint(w, fn(str))
}

// Picker is a single-choice list dialog.
type Picker struct {
	list list.Model
}

// NewPicker creates a picker over labels.
func NewPicker(title string, labels []string, width, height int) *Picker {
	items := make([]list.Item, len(labels))
	for i, label := range labels {
		items[i] = choiceItem{index: i, label: label}
	}

	l := list.New(items, choiceDelegate{}, width, pickerHeight(height))
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = pickerTitleStyle
	l.Styles.HelpStyle = pickerHelpStyle

	return &Picker{list: l}
}

// Update handles keys. Enter chooses, esc cancels unless a filter is active.
func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.list.SetSize(msg.Width, pickerHeight(msg.Height))
		return p, nil

	case tea.KeyMsg:
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := p.list.SelectedItem().(choiceItem); ok {
				return p, func() tea.Msg { return ChosenMsg{Index: item.index} }
			}
			return p, nil
		case "esc":
			if p.list.FilterState() == list.FilterApplied {
				break
			}
			return p, func() tea.Msg { return CanceledMsg{} }
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker.
func (p *Picker) View() string {
	return p.list.View()
}

func pickerHeight(h int) int {
	if h <= 0 {
		return 20
	}
	return h - 2
}
