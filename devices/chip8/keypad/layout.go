package keypad

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Layout maps keyboard characters to keypad keys.
//
// The keypad is laid out as
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
//
// and bound to the 4x4 block at the left of the keyboard.
type Layout struct {
	Name string
	keys map[rune]int
}

// Known layouts.
var (
	Qwerty = newLayout("qwerty", "1234QWERASDFZXCV")
	Qwertz = newLayout("qwertz", "1234QWERASDFYXCV")
	Azerty = newLayout("azerty", "1234AZERQSDFWXCV")
)

// keyOrder lists the keypad keys in keyboard-block order.
var keyOrder = [16]int{
	0x1, 0x2, 0x3, 0xc,
	0x4, 0x5, 0x6, 0xd,
	0x7, 0x8, 0x9, 0xe,
	0xa, 0x0, 0xb, 0xf,
}

func newLayout(name, block string) Layout {
	l := Layout{Name: name, keys: make(map[rune]int, len(keyOrder))}
	for i, r := range block {
		l.keys[r] = keyOrder[i]
	}
	return l
}

// LayoutByName returns the named layout, ignoring case.
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case Qwerty.Name:
		return Qwerty, nil
	case Qwertz.Name:
		return Qwertz, nil
	case Azerty.Name:
		return Azerty, nil
	}
	return Layout{}, errors.Errorf("unknown keyboard layout %q", name)
}

// Key returns the keypad key bound to the given character, ignoring case.
func (l Layout) Key(r rune) (int, bool) {
	key, ok := l.keys[unicode.ToUpper(r)]
	return key, ok
}
