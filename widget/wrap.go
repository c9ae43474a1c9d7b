package widget

import (
	"strings"

	rw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrapLine word-wraps a single line of plain text to fit within width
// display columns. Words wider than the full width are split mid-word.
func wrapLine(line string, width int) []string {
	if width <= 0 || uniseg.StringWidth(line) <= width {
		return []string{line}
	}

	var (
		out []string
		cur strings.Builder
		w   int
	)
	flush := func() {
		out = append(out, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		w = 0
	}

	for _, word := range strings.Split(line, " ") {
		ww := uniseg.StringWidth(word)
		switch {
		case w == 0 && ww <= width:
			cur.WriteString(word)
			w = ww
		case w+1+ww <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
			w += 1 + ww
		case ww > width:
			// Word wider than the line: hard-split by rune width.
			if w > 0 {
				flush()
			}
			for _, r := range word {
				cw := rw.RuneWidth(r)
				if w+cw > width {
					flush()
				}
				cur.WriteRune(r)
				w += cw
			}
		default:
			flush()
			cur.WriteString(word)
			w = ww
		}
	}
	if cur.Len() > 0 || len(out) == 0 {
		flush()
	}
	return out
}

// wrapText wraps multi-line plain text, preserving existing line breaks.
func wrapText(text string, width int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return out
}
