package memtk

import (
	"strconv"

	"Puppeteer/pkg/toolkit"
)

const (
	popupRows      = 3
	popupRowHeight = 20
)

// ComboItem is one entry of a combo box.
type ComboItem struct {
	Text string
	Data *toolkit.Variant
}

// ComboBox is a drop-down list. A left press toggles its popup; releasing
// over a popup row selects it.
type ComboBox struct {
	*Widget
	OnCurrentIndexChanged func(index int)

	items   []ComboItem
	current int
	popup   *ItemList
}

// NewComboBox creates an empty combo box.
func NewComboBox(parent *Widget, name string) *ComboBox {
	c := &ComboBox{Widget: newWidget(parent.app, parent, classComboBox, name), current: -1}
	c.self = c
	c.kind = toolkit.KindComboBox
	c.focusable = true
	c.handler = c.handleEvent
	c.popup = newItemList(c)
	c.syncProperties()
	return c
}

// AddItem appends an item; the first item added becomes current.
func (c *ComboBox) AddItem(text string, data *toolkit.Variant) {
	c.items = append(c.items, ComboItem{Text: text, Data: data})
	if c.current < 0 {
		c.current = 0
	}
	c.syncProperties()
}

func (c *ComboBox) Count() int { return len(c.items) }

func (c *ComboBox) CurrentIndex() int { return c.current }

// CurrentText returns the text of the current item, or "".
func (c *ComboBox) CurrentText() string { return c.ItemText(c.current) }

// ItemText returns the text of item i, or "" when out of range.
func (c *ComboBox) ItemText(i int) string {
	if i < 0 || i >= len(c.items) {
		return ""
	}
	return c.items[i].Text
}

// ItemData returns the data of item i, or nil.
func (c *ComboBox) ItemData(i int) *toolkit.Variant {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i].Data
}

// SetCurrentIndex selects item i and notifies OnCurrentIndexChanged on change.
func (c *ComboBox) SetCurrentIndex(i int) {
	if i < 0 || i >= len(c.items) || i == c.current {
		return
	}
	c.current = i
	c.syncProperties()
	if c.OnCurrentIndexChanged != nil {
		c.OnCurrentIndexChanged(i)
	}
}

// FindText implements toolkit.ComboBox.
func (c *ComboBox) FindText(text string) int {
	for i, item := range c.items {
		if item.Text == text {
			return i
		}
	}
	return -1
}

// Popup implements toolkit.ComboBox.
func (c *ComboBox) Popup() toolkit.ItemView { return c.popup }

// List returns the popup as its concrete type.
func (c *ComboBox) List() *ItemList { return c.popup }

// SetGeometry places the combo box and keeps the popup just below it.
func (c *ComboBox) SetGeometry(x, y, width, height int) {
	c.Widget.SetGeometry(x, y, width, height)
	c.popup.relayout()
}

func (c *ComboBox) syncProperties() {
	c.props["text"] = c.CurrentText()
	c.props["currentText"] = c.CurrentText()
	c.props["currentIndex"] = strconv.Itoa(c.current)
	c.props["count"] = strconv.Itoa(len(c.items))
}

func (c *ComboBox) handleEvent(ev toolkit.Event) {
	me, ok := ev.(*toolkit.MouseEvent)
	if !ok || me.Kind != toolkit.EventMouseButtonPress || me.Button != toolkit.LeftButton {
		return
	}
	if c.popup.hidden {
		c.popup.ScrollTo(c.current)
		c.popup.Show()
	} else {
		c.popup.Hide()
	}
}

// ========================================
// ItemList
// ========================================

// ItemList is the popup list of a combo box. It shows popupRows rows at a
// time inside its viewport.
type ItemList struct {
	*Widget
	combo    *ComboBox
	viewport *Widget
	offset   int
}

func newItemList(c *ComboBox) *ItemList {
	l := &ItemList{Widget: newWidget(c.app, c.Widget, classListView, ""), combo: c}
	l.self = l
	l.hidden = true
	l.viewport = newWidget(c.app, l.Widget, classViewport, "")
	l.viewport.handler = l.handleViewportEvent
	l.relayout()
	return l
}

func (l *ItemList) relayout() {
	cg := l.combo.geom
	l.geom = toolkit.Rect{X: 0, Y: cg.Height, Width: cg.Width, Height: popupRows * popupRowHeight}
	l.viewport.geom = toolkit.Rect{Width: cg.Width, Height: popupRows * popupRowHeight}
}

// Hidden implements toolkit.ItemView.
func (l *ItemList) Hidden() bool { return l.hidden }

// Offset returns the index of the first visible row.
func (l *ItemList) Offset() int { return l.offset }

// ScrollTo implements toolkit.ItemView.
func (l *ItemList) ScrollTo(index int) {
	if index < 0 || index >= l.combo.Count() {
		return
	}
	if index < l.offset {
		l.offset = index
	} else if index >= l.offset+popupRows {
		l.offset = index - popupRows + 1
	}
}

// VisualRect implements toolkit.ItemView. Rows scrolled out of view yield an
// invalid rectangle.
func (l *ItemList) VisualRect(index int) toolkit.Rect {
	row := index - l.offset
	if index < 0 || index >= l.combo.Count() || row < 0 || row >= popupRows {
		return toolkit.Rect{}
	}
	return toolkit.Rect{X: 0, Y: row * popupRowHeight, Width: l.viewport.geom.Width, Height: popupRowHeight}
}

// IndexAt implements toolkit.ItemView.
func (l *ItemList) IndexAt(p toolkit.Point) int {
	if !(toolkit.Rect{Width: l.viewport.geom.Width, Height: l.viewport.geom.Height}).Contains(p) {
		return -1
	}
	index := l.offset + p.Y/popupRowHeight
	if index >= l.combo.Count() {
		return -1
	}
	return index
}

// ItemText implements toolkit.ItemView.
func (l *ItemList) ItemText(index int) string { return l.combo.ItemText(index) }

// Viewport implements toolkit.ItemView.
func (l *ItemList) Viewport() toolkit.Object { return l.viewport.self }

func (l *ItemList) handleViewportEvent(ev toolkit.Event) {
	me, ok := ev.(*toolkit.MouseEvent)
	if !ok || me.Kind != toolkit.EventMouseButtonRelease || me.Button != toolkit.LeftButton || l.hidden {
		return
	}
	index := l.IndexAt(me.Pos)
	l.Hide()
	if index >= 0 {
		l.combo.SetCurrentIndex(index)
	}
}
