package memtk

import (
	"strings"

	"Puppeteer/pkg/toolkit"
)

const (
	menuBarHeight  = 24
	menuWidth      = 150
	menuItemHeight = 20
	menuMargin     = 5
)

// MenuAction is an entry of a menu bar or menu.
type MenuAction struct {
	Text        string
	IconText    string
	Data        *toolkit.Variant
	OnTriggered func()
	Submenu     *Menu
	rect        toolkit.Rect
}

// Rect returns the action's area in its container's coordinates.
func (a *MenuAction) Rect() toolkit.Rect { return a.rect }

// Menu is either a horizontal menu bar or a vertical popup menu.
type Menu struct {
	*Widget
	actions []*MenuAction
	bar     bool
}

var (
	_ toolkit.ActionContainer = (*Menu)(nil)
	_ toolkit.ComboBox        = (*ComboBox)(nil)
	_ toolkit.ItemView        = (*ItemList)(nil)
)

// NewMenuBar creates a menu bar spanning the width of parent.
func NewMenuBar(parent *Widget, name string) *Menu {
	m := &Menu{Widget: newWidget(parent.app, parent, classMenuBar, name), bar: true}
	m.self = m
	m.kind = toolkit.KindMenuBar
	m.geom = toolkit.Rect{Width: parent.geom.Width, Height: menuBarHeight}
	m.handler = m.handleEvent
	return m
}

func newMenu(parent *Widget, title string) *Menu {
	m := &Menu{Widget: newWidget(parent.app, parent, classMenu, "")}
	m.self = m
	m.kind = toolkit.KindMenu
	m.hidden = true
	m.props["title"] = title
	m.handler = m.handleEvent
	m.relayout()
	return m
}

// AddMenu appends a submenu entry titled title and returns the popup menu.
func (m *Menu) AddMenu(title string) *Menu {
	sub := newMenu(m.Widget, title)
	m.actions = append(m.actions, &MenuAction{Text: title, IconText: iconText(title), Submenu: sub})
	m.relayout()
	return sub
}

// AddAction appends an entry that runs fn when triggered.
func (m *Menu) AddAction(text string, fn func()) *MenuAction {
	a := &MenuAction{Text: text, IconText: iconText(text), OnTriggered: fn}
	m.actions = append(m.actions, a)
	m.relayout()
	return a
}

// Actions returns the entries in order.
func (m *Menu) Actions() []*MenuAction { return m.actions }

// Title returns the title of a popup menu.
func (m *Menu) Title() string { return m.props["title"] }

// ActionAt implements toolkit.ActionContainer.
func (m *Menu) ActionAt(p toolkit.Point) *toolkit.ActionInfo {
	a := m.actionAt(p)
	if a == nil {
		return nil
	}
	return &toolkit.ActionInfo{Text: a.Text, IconText: a.IconText, Data: a.Data}
}

func (m *Menu) actionAt(p toolkit.Point) *MenuAction {
	for _, a := range m.actions {
		if a.rect.Contains(p) {
			return a
		}
	}
	return nil
}

func (m *Menu) relayout() {
	if m.bar {
		x := 0
		for _, a := range m.actions {
			w := 10*len(toolkit.StripMnemonic(a.Text)) + 20
			a.rect = toolkit.Rect{X: x, Y: 0, Width: w, Height: m.geom.Height}
			if a.Submenu != nil {
				a.Submenu.geom.X = x
				a.Submenu.geom.Y = m.geom.Height
			}
			x += w
		}
		return
	}

	m.geom.Width = menuWidth
	m.geom.Height = 2*menuMargin + len(m.actions)*menuItemHeight
	for i, a := range m.actions {
		a.rect = toolkit.Rect{X: 0, Y: menuMargin + i*menuItemHeight, Width: menuWidth, Height: menuItemHeight}
	}
}

func (m *Menu) closeSubmenus() {
	for _, a := range m.actions {
		if a.Submenu != nil {
			a.Submenu.Hide()
		}
	}
}

func (m *Menu) handleEvent(ev toolkit.Event) {
	me, ok := ev.(*toolkit.MouseEvent)
	if !ok || me.Button != toolkit.LeftButton || !m.IsVisible() {
		return
	}
	a := m.actionAt(me.Pos)

	if m.bar {
		if me.Kind != toolkit.EventMouseButtonPress || a == nil || a.Submenu == nil {
			return
		}
		if a.Submenu.hidden {
			m.closeSubmenus()
			a.Submenu.Show()
		} else {
			a.Submenu.Hide()
		}
		return
	}

	if me.Kind != toolkit.EventMouseButtonRelease || a == nil {
		return
	}
	m.Hide()
	if a.OnTriggered != nil {
		a.OnTriggered()
	}
}

// iconText is the default icon text of an action: the label without
// accelerator markers or a trailing ellipsis.
func iconText(text string) string {
	return strings.TrimSuffix(toolkit.StripMnemonic(text), "...")
}
