package memtk

import (
	"strings"

	"Puppeteer/pkg/toolkit"
)

// Label shows a line of text.
type Label struct {
	*Widget
}

// NewLabel creates a label.
func NewLabel(parent *Widget, name, text string) *Label {
	l := &Label{Widget: newWidget(parent.app, parent, classLabel, name)}
	l.self = l
	l.props["text"] = text
	return l
}

func (l *Label) SetText(text string) { l.props["text"] = text }

func (l *Label) Text() string { return l.props["text"] }

// Button is a push button. OnPressed runs on a left press, OnClicked on the
// release that follows it.
type Button struct {
	*Widget
	OnPressed func()
	OnClicked func()
	down      bool
}

// NewButton creates a push button with a label such as "&Yeah".
func NewButton(parent *Widget, name, text string) *Button {
	b := &Button{Widget: newWidget(parent.app, parent, classPushButton, name)}
	b.self = b
	b.focusable = true
	b.props["text"] = text
	b.handler = b.handleEvent
	return b
}

func (b *Button) Text() string { return b.props["text"] }

func (b *Button) handleEvent(ev toolkit.Event) {
	switch e := ev.(type) {
	case *toolkit.MouseEvent:
		if e.Button != toolkit.LeftButton {
			return
		}
		switch e.Kind {
		case toolkit.EventMouseButtonPress:
			b.down = true
			if b.OnPressed != nil {
				b.OnPressed()
			}
		case toolkit.EventMouseButtonRelease:
			if !b.down {
				return
			}
			b.down = false
			if b.OnClicked != nil && (toolkit.Rect{Width: b.geom.Width, Height: b.geom.Height}).Contains(e.Pos) {
				b.OnClicked()
			}
		}
	case *toolkit.KeyEvent:
		if e.Kind == toolkit.EventKeyRelease && e.Key == toolkit.KeySpace && b.OnClicked != nil {
			b.OnClicked()
		}
	}
}

// LineEdit is a single line text input. Editing finishes on Return or when
// focus leaves.
type LineEdit struct {
	*Widget
	OnEditingFinished func()
}

// NewLineEdit creates an empty line edit.
func NewLineEdit(parent *Widget, name string) *LineEdit {
	e := &LineEdit{Widget: newWidget(parent.app, parent, classLineEdit, name)}
	e.self = e
	e.focusable = true
	e.props["text"] = ""
	e.handler = e.handleEvent
	return e
}

func (e *LineEdit) SetText(text string) { e.props["text"] = text }

func (e *LineEdit) Text() string { return e.props["text"] }

func (e *LineEdit) finish() {
	if e.OnEditingFinished != nil {
		e.OnEditingFinished()
	}
}

func (e *LineEdit) handleEvent(ev toolkit.Event) {
	switch ev.Type() {
	case toolkit.EventFocusOut:
		e.finish()
		return
	case toolkit.EventKeyPress:
	default:
		return
	}

	ke := ev.(*toolkit.KeyEvent)
	text := e.props["text"]
	switch ke.Key {
	case toolkit.KeyReturn, toolkit.KeyEnter:
		e.finish()
	case toolkit.KeyBackspace:
		if len(text) > 0 {
			e.props["text"] = text[:len(text)-1]
		}
	default:
		e.props["text"] = text + keyText(ke)
	}
}

// keyText is the text a key press inserts. Injected events may carry no
// text, in which case printable keys produce their unshifted character.
func keyText(ke *toolkit.KeyEvent) string {
	if ke.Text != "" {
		return ke.Text
	}
	if ke.Key >= 0x20 && ke.Key < 0x7f {
		s := string(rune(ke.Key))
		if ke.Modifiers&toolkit.ShiftModifier == 0 {
			s = strings.ToLower(s)
		}
		return s
	}
	return ""
}
