package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes overlays typed input on the reference. Input past the end
// of the reference is shown as errors.
func buildStyledRunes(targetRunes, inputRunes []rune, cursorIndex int) []styledRune {
	current := wordAt(findWords(targetRunes), cursorIndex)

	out := make([]styledRune, 0, max(len(targetRunes), len(inputRunes)))
	for i, target := range targetRunes {
		displayed := target
		style := pendingStyle
		switch {
		case i < len(inputRunes) && inputRunes[i] == target:
			style = correctStyle
		case i < len(inputRunes):
			style = incorrectStyle
			if target == ' ' {
				displayed = '•'
			}
		case target != ' ' && current.contains(i):
			style = currentWordStyle
		}
		if i == cursorIndex {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	for _, extra := range inputRunes[min(len(inputRunes), len(targetRunes)):] {
		out = append(out, styledRune{
			s:       incorrectStyle.Render(string(extra)),
			width:   runewidth.RuneWidth(extra),
			isSpace: extra == ' ',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func (w wordRange) contains(i int) bool {
	return i >= w.start && i < w.end
}

func findWords(targetRunes []rune) []wordRange {
	var words []wordRange
	start := -1
	for i, r := range targetRunes {
		switch {
		case r == ' ' && start >= 0:
			words = append(words, wordRange{start: start, end: i})
			start = -1
		case r != ' ' && start < 0:
			start = i
		}
	}
	if start >= 0 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

// wordAt returns the word holding or following the cursor. A negative cursor
// selects nothing.
func wordAt(words []wordRange, cursorIndex int) wordRange {
	if cursorIndex < 0 {
		return wordRange{start: -1, end: -1}
	}
	for _, w := range words {
		if cursorIndex < w.end {
			return w
		}
	}
	return wordRange{start: -1, end: -1}
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at spaces so no line exceeds width cells.
// A word longer than width is split.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	var line []styledRune
	lineWidth := 0
	flush := func() {
		lines = append(lines, renderStyledRunes(line))
		line = line[:0]
		lineWidth = 0
	}

	for start := 0; start < len(runes); {
		// Take one word plus its trailing space.
		end := start
		for end < len(runes) && !runes[end].isSpace {
			end++
		}
		if end < len(runes) {
			end++
		}
		word := runes[start:end]
		start = end

		wordWidth := 0
		for _, r := range word {
			if !r.isSpace {
				wordWidth += r.width
			}
		}
		if lineWidth > 0 && lineWidth+wordWidth > width {
			flush()
		}
		for _, r := range word {
			if lineWidth+r.width > width && !r.isSpace && lineWidth > 0 {
				flush()
			}
			line = append(line, r)
			lineWidth += r.width
		}
	}
	if len(line) > 0 || len(lines) == 0 {
		flush()
	}
	return strings.Join(lines, "\n")
}
