package statsui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PrevTab  key.Binding
	NextTab  key.Binding
	Scroll   key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Wider    key.Binding
	Narrower key.Binding
	Settings key.Binding
	Quit     key.Binding
}

type filterKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Apply  key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	PrevTab:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev tab")),
	NextTab:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next tab")),
	Scroll:   key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "scroll")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Wider:    key.NewBinding(key.WithKeys("="), key.WithHelp("=", "smooth more")),
	Narrower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smooth less")),
	Settings: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filters")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var filterKeys = filterKeyMap{
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
	Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevTab, k.NextTab, k.Scroll, k.Narrower, k.Wider, k.Settings, k.Quit}
}

func (k filterKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Apply, k.Cancel}
}
