package toolkit

import (
	"fmt"
	"strconv"
	"strings"
)

// ========================================
// Constant <-> string tables
// ========================================

// EventType identifies the kind of an application event.
type EventType int

const (
	EventNone                  EventType = 0
	EventTimer                 EventType = 1
	EventMouseButtonPress      EventType = 2
	EventMouseButtonRelease    EventType = 3
	EventMouseButtonDblClick   EventType = 4
	EventMouseMove             EventType = 5
	EventKeyPress              EventType = 6
	EventKeyRelease            EventType = 7
	EventFocusIn               EventType = 8
	EventFocusOut              EventType = 9
	EventEnter                 EventType = 10
	EventLeave                 EventType = 11
	EventPaint                 EventType = 12
	EventMove                  EventType = 13
	EventResize                EventType = 14
	EventShow                  EventType = 17
	EventHide                  EventType = 18
	EventClose                 EventType = 19
	EventQuit                  EventType = 20
	EventWindowActivate        EventType = 24
	EventWindowDeactivate      EventType = 25
	EventWheel                 EventType = 31
	EventPaletteChange         EventType = 39
	EventShortcutOverride      EventType = 51
	EventDeferredDelete        EventType = 52
	EventChildAdded            EventType = 68
	EventChildPolished         EventType = 69
	EventChildRemoved          EventType = 71
	EventPolishRequest         EventType = 74
	EventPolish                EventType = 75
	EventLayoutRequest         EventType = 76
	EventUpdateRequest         EventType = 77
	EventContextMenu           EventType = 82
	EventToolTip               EventType = 110
	EventStatusTip             EventType = 112
	EventApplicationActivate   EventType = 121
	EventApplicationDeactivate EventType = 122
	EventHoverEnter            EventType = 127
	EventHoverLeave            EventType = 128
	EventHoverMove             EventType = 129
)

// KeyboardModifiers is a bitmask of held modifier keys.
type KeyboardModifiers uint32

const (
	NoModifier          KeyboardModifiers = 0
	ShiftModifier       KeyboardModifiers = 0x02000000
	ControlModifier     KeyboardModifiers = 0x04000000
	AltModifier         KeyboardModifiers = 0x08000000
	MetaModifier        KeyboardModifiers = 0x10000000
	KeypadModifier      KeyboardModifiers = 0x20000000
	GroupSwitchModifier KeyboardModifiers = 0x40000000
)

// MouseButton is a single mouse button.
type MouseButton uint32

// MouseButtons is a bitmask of held mouse buttons.
type MouseButtons uint32

const (
	NoButton    MouseButton = 0
	LeftButton  MouseButton = 1
	RightButton MouseButton = 2
	MidButton   MouseButton = 4
	XButton1    MouseButton = 8
	XButton2    MouseButton = 16
)

// Key is a symbolic key code.
type Key uint32

const (
	KeyEscape     Key = 0x01000000
	KeyTab        Key = 0x01000001
	KeyBacktab    Key = 0x01000002
	KeyBackspace  Key = 0x01000003
	KeyReturn     Key = 0x01000004
	KeyEnter      Key = 0x01000005
	KeyInsert     Key = 0x01000006
	KeyDelete     Key = 0x01000007
	KeyPause      Key = 0x01000008
	KeyPrint      Key = 0x01000009
	KeySysReq     Key = 0x0100000a
	KeyClear      Key = 0x0100000b
	KeyHome       Key = 0x01000010
	KeyEnd        Key = 0x01000011
	KeyLeft       Key = 0x01000012
	KeyUp         Key = 0x01000013
	KeyRight      Key = 0x01000014
	KeyDown       Key = 0x01000015
	KeyPageUp     Key = 0x01000016
	KeyPageDown   Key = 0x01000017
	KeyShift      Key = 0x01000020
	KeyControl    Key = 0x01000021
	KeyMeta       Key = 0x01000022
	KeyAlt        Key = 0x01000023
	KeyCapsLock   Key = 0x01000024
	KeyNumLock    Key = 0x01000025
	KeyScrollLock Key = 0x01000026
	KeyF1         Key = 0x01000030
	KeyMenu       Key = 0x01000055
	KeyHelp       Key = 0x01000058
	KeySpace      Key = 0x20
	KeyA          Key = 0x41
)

type mapping struct {
	mask uint32
	name string
}

var eventMap = []mapping{
	{uint32(EventNone), "None"},
	{uint32(EventTimer), "Timer"},
	{uint32(EventMouseButtonPress), "MouseButtonPress"},
	{uint32(EventMouseButtonRelease), "MouseButtonRelease"},
	{uint32(EventMouseButtonDblClick), "MouseButtonDblClick"},
	{uint32(EventMouseMove), "MouseMove"},
	{uint32(EventKeyPress), "KeyPress"},
	{uint32(EventKeyRelease), "KeyRelease"},
	{uint32(EventFocusIn), "FocusIn"},
	{uint32(EventFocusOut), "FocusOut"},
	{uint32(EventEnter), "Enter"},
	{uint32(EventLeave), "Leave"},
	{uint32(EventPaint), "Paint"},
	{uint32(EventMove), "Move"},
	{uint32(EventResize), "Resize"},
	{uint32(EventShow), "Show"},
	{uint32(EventHide), "Hide"},
	{uint32(EventClose), "Close"},
	{uint32(EventQuit), "Quit"},
	{uint32(EventWindowActivate), "WindowActivate"},
	{uint32(EventWindowDeactivate), "WindowDeactivate"},
	{uint32(EventWheel), "Wheel"},
	{uint32(EventPaletteChange), "PaletteChange"},
	{uint32(EventShortcutOverride), "ShortcutOverride"},
	{uint32(EventDeferredDelete), "DeferredDelete"},
	{uint32(EventChildAdded), "ChildAdded"},
	{uint32(EventChildPolished), "ChildPolished"},
	{uint32(EventChildRemoved), "ChildRemoved"},
	{uint32(EventPolishRequest), "PolishRequest"},
	{uint32(EventPolish), "Polish"},
	{uint32(EventLayoutRequest), "LayoutRequest"},
	{uint32(EventUpdateRequest), "UpdateRequest"},
	{uint32(EventContextMenu), "ContextMenu"},
	{uint32(EventToolTip), "ToolTip"},
	{uint32(EventStatusTip), "StatusTip"},
	{uint32(EventApplicationActivate), "ApplicationActivate"},
	{uint32(EventApplicationDeactivate), "ApplicationDeactivate"},
	{uint32(EventHoverEnter), "HoverEnter"},
	{uint32(EventHoverLeave), "HoverLeave"},
	{uint32(EventHoverMove), "HoverMove"},
}

var modifierMap = []mapping{
	{uint32(NoModifier), "none"},
	{uint32(ShiftModifier), "shift"},
	{uint32(ControlModifier), "control"},
	{uint32(AltModifier), "alt"},
	{uint32(MetaModifier), "meta"},
	{uint32(KeypadModifier), "keypad"},
	{uint32(GroupSwitchModifier), "groupswitch"},
}

var buttonMap = []mapping{
	{uint32(NoButton), "none"},
	{uint32(LeftButton), "left"},
	{uint32(RightButton), "right"},
	{uint32(MidButton), "mid"},
	{uint32(XButton1), "xbtn1"},
	{uint32(XButton2), "xbtn2"},
}

var keyMap = buildKeyMap()

func buildKeyMap() []mapping {
	m := []mapping{
		{uint32(KeyEscape), "escape"},
		{uint32(KeyTab), "tab"},
		{uint32(KeyBacktab), "backtab"},
		{uint32(KeyBackspace), "backspace"},
		{uint32(KeyReturn), "return"},
		{uint32(KeyEnter), "enter"},
		{uint32(KeyInsert), "insert"},
		{uint32(KeyDelete), "delete"},
		{uint32(KeyPause), "pause"},
		{uint32(KeyPrint), "print"},
		{uint32(KeySysReq), "sysreq"},
		{uint32(KeyClear), "clear"},
		{uint32(KeyHome), "home"},
		{uint32(KeyEnd), "end"},
		{uint32(KeyLeft), "left"},
		{uint32(KeyUp), "up"},
		{uint32(KeyRight), "right"},
		{uint32(KeyDown), "down"},
		{uint32(KeyPageUp), "pageup"},
		{uint32(KeyPageDown), "pagedown"},
		{uint32(KeyShift), "shift"},
		{uint32(KeyControl), "control"},
		{uint32(KeyMeta), "meta"},
		{uint32(KeyAlt), "alt"},
		{uint32(KeyCapsLock), "capslock"},
		{uint32(KeyNumLock), "numlock"},
		{uint32(KeyScrollLock), "scrolllock"},
		{uint32(KeyMenu), "menu"},
		{uint32(KeyHelp), "help"},
		{uint32(KeySpace), "space"},
	}
	for i := 0; i < 35; i++ {
		m = append(m, mapping{uint32(KeyF1) + uint32(i), fmt.Sprintf("f%d", i+1)})
	}
	punct := []string{
		"exclam", "quotedbl", "numbersign", "dollar", "percent", "ampersand",
		"apostrophe", "parenleft", "parenright", "asterisk", "plus", "comma",
		"minus", "period", "slash",
	}
	for i, name := range punct {
		m = append(m, mapping{0x21 + uint32(i), name})
	}
	for c := '0'; c <= '9'; c++ {
		m = append(m, mapping{uint32(c), string(c)})
	}
	for i, name := range []string{"colon", "semicolon", "less", "equal", "greater", "question", "at"} {
		m = append(m, mapping{0x3a + uint32(i), name})
	}
	for c := 'a'; c <= 'z'; c++ {
		m = append(m, mapping{uint32(KeyA) + uint32(c-'a'), string(c)})
	}
	for i, name := range []string{"bracketleft", "backslash", "bracketright", "asciicircum", "underscore", "quoteleft"} {
		m = append(m, mapping{0x5b + uint32(i), name})
	}
	for i, name := range []string{"braceleft", "bar", "braceright", "asciitilde"} {
		m = append(m, mapping{0x7b + uint32(i), name})
	}
	return m
}

func bitmaskToString(value uint32, table []mapping) string {
	for _, m := range table {
		if m.mask == value {
			return m.name
		}
	}

	var parts []string
	rest := value
	for _, m := range table {
		if m.mask == 0 {
			continue
		}
		if rest&m.mask == m.mask {
			parts = append(parts, m.name)
			rest &^= m.mask
		}
	}
	if rest != 0 {
		return fmt.Sprintf("0x%x", value)
	}
	return strings.Join(parts, ",")
}

func enumToString(value uint32, table []mapping) string {
	for _, m := range table {
		if m.mask == value {
			return m.name
		}
	}
	if value > 1000 {
		return fmt.Sprintf("0x%x", value)
	}
	return strconv.FormatUint(uint64(value), 10)
}

// enumFromString matches names first so that key names such as "0" are not
// mistaken for raw codes.
func enumFromString(s string, table []mapping) (uint32, bool) {
	for _, m := range table {
		if m.name == s {
			return m.mask, true
		}
	}
	if v, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(v), true
	}
	return 0, false
}

func (t EventType) String() string {
	return enumToString(uint32(t), eventMap)
}

// ParseEventType maps an event type name back to its constant. Unknown names
// yield EventNone.
func ParseEventType(s string) EventType {
	v, ok := enumFromString(s, eventMap)
	if !ok {
		return EventNone
	}
	return EventType(v)
}

func (m KeyboardModifiers) String() string {
	return bitmaskToString(uint32(m), modifierMap)
}

func (b MouseButton) String() string {
	return enumToString(uint32(b), buttonMap)
}

func (b MouseButtons) String() string {
	return bitmaskToString(uint32(b), buttonMap)
}

// ParseButton maps a button name back to its constant. Unknown names yield NoButton.
func ParseButton(s string) MouseButton {
	v, ok := enumFromString(s, buttonMap)
	if !ok {
		return NoButton
	}
	return MouseButton(v)
}

func (k Key) String() string {
	return enumToString(uint32(k), keyMap)
}

// ParseKey maps a symbolic key name back to its code. Unknown names yield 0.
func ParseKey(s string) Key {
	v, ok := enumFromString(s, keyMap)
	if !ok {
		return 0
	}
	return Key(v)
}

// StripMnemonic removes accelerator markers from a label. Each '&' is dropped
// and the character following it is kept verbatim, so "&&" yields "&".
func StripMnemonic(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '&' {
			i++
			if i >= len(runes) {
				break
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}
