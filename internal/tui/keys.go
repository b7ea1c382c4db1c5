package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up            key.Binding
	Down          key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	NextFilter    key.Binding
	PrevFilter    key.Binding
	Search        key.Binding
	Rescan        key.Binding
	RepairPrefabs key.Binding
	RepairScenes  key.Binding
	DryRun        key.Binding
	Backup        key.Binding
	Copy          key.Binding
	Cancel        key.Binding
	Confirm       key.Binding
	Deny          key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func k(keys []string, help, desc string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(help, desc),
	)
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:            k([]string{"up", "k"}, "↑/k", "up"),
		Down:          k([]string{"down", "j"}, "↓/j", "down"),
		PageUp:        k([]string{"pgup"}, "pgup", "page up"),
		PageDown:      k([]string{"pgdown"}, "pgdn", "page down"),
		NextFilter:    k([]string{"tab", "right", "l"}, "tab", "next kind"),
		PrevFilter:    k([]string{"shift+tab", "left", "h"}, "shift+tab", "prev kind"),
		Search:        k([]string{"/"}, "/", "search"),
		Rescan:        k([]string{"r"}, "r", "rescan"),
		RepairPrefabs: k([]string{"p"}, "p", "repair prefabs"),
		RepairScenes:  k([]string{"s"}, "s", "repair open scenes"),
		DryRun:        k([]string{"d"}, "d", "toggle dry run"),
		Backup:        k([]string{"b"}, "b", "toggle backup"),
		Copy:          k([]string{"c"}, "c", "copy log"),
		Cancel:        k([]string{"esc", "x"}, "esc", "cancel"),
		Confirm:       k([]string{"y", "enter"}, "y", "confirm"),
		Deny:          k([]string{"n", "esc"}, "n", "abort"),
		Help:          k([]string{"?"}, "?", "help"),
		Quit:          k([]string{"q", "ctrl+c"}, "q", "quit"),
	}
}

func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Search, km.NextFilter, km.Rescan, km.RepairPrefabs, km.RepairScenes, km.Copy, km.Help, km.Quit}
}

func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.PageUp, km.PageDown},
		{km.Search, km.NextFilter, km.PrevFilter},
		{km.Rescan, km.RepairPrefabs, km.RepairScenes, km.Cancel},
		{km.DryRun, km.Backup, km.Copy, km.Help, km.Quit},
	}
}
