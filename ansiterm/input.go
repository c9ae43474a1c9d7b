package ansiterm

import (
	"bytes"
	"unicode/utf8"

	"github.com/fwojciec/mvu"
)

// parseInput decodes as many complete events as possible from buf and
// returns them with the number of bytes consumed. A trailing incomplete
// escape or UTF-8 sequence is left unconsumed for the next read.
func parseInput(buf []byte) ([]mvu.Event, int) {
	var events []mvu.Event
	i := 0
	for i < len(buf) {
		ev, n := parseOne(buf[i:])
		if n == 0 {
			break
		}
		if ev != nil {
			events = append(events, ev)
		}
		i += n
	}
	return events, i
}

// parseOne decodes a single event from the head of buf. A nil event with
// n > 0 means the bytes were recognized but carry no event (for example an
// unsupported escape sequence). n == 0 means more bytes are needed.
func parseOne(buf []byte) (mvu.Event, int) {
	if len(buf) == 0 {
		return nil, 0
	}

	switch b := buf[0]; {
	case b == 0x1b:
		return parseEscape(buf)
	case b == '\r' || b == '\n':
		return mvu.KeyEvent{Kind: mvu.KeyEnter}, 1
	case b == '\t':
		return mvu.KeyEvent{Kind: mvu.KeyTab}, 1
	case b == 0x7f || b == 0x08:
		return mvu.KeyEvent{Kind: mvu.KeyBackspace}, 1
	case b < 0x20:
		// Ctrl+letter: 0x01..0x1a map to a..z.
		if b >= 0x01 && b <= 0x1a {
			return mvu.KeyEvent{Kind: mvu.KeyRune, Rune: rune('a' + b - 1), Ctrl: true}, 1
		}
		return nil, 1
	default:
		r, n := utf8.DecodeRune(buf)
		if r == utf8.RuneError && n == 1 && !utf8.FullRune(buf) {
			return nil, 0
		}
		return mvu.KeyEvent{Kind: mvu.KeyRune, Rune: r}, n
	}
}

func parseEscape(buf []byte) (mvu.Event, int) {
	if len(buf) == 1 {
		// Sequence bytes arrive in the same read in raw mode, so a lone
		// ESC is the escape key.
		return mvu.KeyEvent{Kind: mvu.KeyEsc}, 1
	}

	switch buf[1] {
	case '[':
		return parseCSI(buf)
	case 'O':
		if len(buf) < 3 {
			return nil, 0
		}
		switch buf[2] {
		case 'A':
			return mvu.KeyEvent{Kind: mvu.KeyUp}, 3
		case 'B':
			return mvu.KeyEvent{Kind: mvu.KeyDown}, 3
		case 'C':
			return mvu.KeyEvent{Kind: mvu.KeyRight}, 3
		case 'D':
			return mvu.KeyEvent{Kind: mvu.KeyLeft}, 3
		}
		return nil, 3
	default:
		// Alt+key.
		r, n := utf8.DecodeRune(buf[1:])
		if r == utf8.RuneError && n == 1 && !utf8.FullRune(buf[1:]) {
			return nil, 0
		}
		return mvu.KeyEvent{Kind: mvu.KeyRune, Rune: r, Alt: true}, 1 + n
	}
}

func parseCSI(buf []byte) (mvu.Event, int) {
	// buf starts with ESC [.
	if len(buf) < 3 {
		return nil, 0
	}

	// Bracketed paste: ESC [ 200 ~ ... ESC [ 201 ~
	if bytes.HasPrefix(buf[2:], []byte("200~")) {
		end := bytes.Index(buf, []byte("\x1b[201~"))
		if end < 0 {
			return nil, 0
		}
		return mvu.PasteEvent{Text: string(buf[6:end])}, end + 6
	}

	// SGR mouse: ESC [ < b ; x ; y (M|m)
	if buf[2] == '<' {
		return parseSGRMouse(buf)
	}

	switch buf[2] {
	case 'A':
		return mvu.KeyEvent{Kind: mvu.KeyUp}, 3
	case 'B':
		return mvu.KeyEvent{Kind: mvu.KeyDown}, 3
	case 'C':
		return mvu.KeyEvent{Kind: mvu.KeyRight}, 3
	case 'D':
		return mvu.KeyEvent{Kind: mvu.KeyLeft}, 3
	}

	// Unrecognized CSI: consume through its final byte (0x40-0x7e).
	for i := 2; i < len(buf); i++ {
		if buf[i] >= 0x40 && buf[i] <= 0x7e {
			return nil, i + 1
		}
	}
	return nil, 0
}

func parseSGRMouse(buf []byte) (mvu.Event, int) {
	// buf starts with ESC [ <.
	end := -1
	release := false
	for i := 3; i < len(buf); i++ {
		if buf[i] == 'M' || buf[i] == 'm' {
			end = i
			release = buf[i] == 'm'
			break
		}
	}
	if end < 0 {
		return nil, 0
	}

	parts := bytes.Split(buf[3:end], []byte(";"))
	if len(parts) != 3 {
		return nil, end + 1
	}
	btn := atoi(parts[0])
	x := atoi(parts[1]) - 1
	y := atoi(parts[2]) - 1

	switch {
	case btn == 64:
		return mvu.MouseEvent{Kind: mvu.MouseScrollUp, X: x, Y: y}, end + 1
	case btn == 65:
		return mvu.MouseEvent{Kind: mvu.MouseScrollDown, X: x, Y: y}, end + 1
	case !release && btn < 3:
		return mvu.MouseEvent{Kind: mvu.MouseClick, X: x, Y: y}, end + 1
	default:
		return nil, end + 1
	}
}

func atoi(b []byte) int {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
