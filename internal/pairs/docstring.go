package pairs

import (
	"strings"
	"unicode"
)

const tabSize = 8

// CleanDocstring normalizes docstring indentation: tabs are expanded, leading
// whitespace is stripped from the first line, the common indentation of the
// remaining lines is removed, and leading and trailing empty lines are dropped.
func CleanDocstring(doc string) string {
	lines := strings.Split(expandTabs(doc), "\n")

	margin := -1
	for _, line := range lines[1:] {
		content := len([]rune(strings.TrimLeftFunc(line, unicode.IsSpace)))
		if content == 0 {
			continue
		}
		indent := len([]rune(line)) - content
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			r := []rune(lines[i])
			if len(r) <= margin {
				lines[i] = ""
			} else {
				lines[i] = string(r[margin:])
			}
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// FirstParagraph returns the text before the first blank line.
func FirstParagraph(doc string) string {
	if i := strings.Index(doc, "\n\n"); i >= 0 {
		return doc[:i]
	}
	return doc
}

func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := tabSize - col%tabSize
			sb.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			sb.WriteRune(r)
			col = 0
		default:
			sb.WriteRune(r)
			col++
		}
	}
	return sb.String()
}
