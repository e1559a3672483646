package parsers

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/code-pairs/internal/syntax"
)

// stringPrefix splits the opening delimiter of a literal (e.g. `rb"""`) into
// its lowercase prefix letters.
func stringPrefix(start string) string {
	return strings.ToLower(strings.TrimRight(start, `'"`))
}

// decodeString processes escape sequences in the body of a str literal.
// Raw literals are returned unchanged.
func decodeString(body string, raw bool) (string, error) {
	if raw || !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			i++
			continue
		}

		esc := body[i+1]
		switch esc {
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			r, ok := parseHex(body, i+2, width)
			if !ok || r > utf8.MaxRune {
				return "", fmt.Errorf("%w: truncated \\%cXXXX escape", ErrSyntax, esc)
			}
			b.WriteRune(rune(r))
			i += 2 + width
		case 'N':
			// Named escapes need the Unicode name table; keep them verbatim.
			end := strings.IndexByte(body[i:], '}')
			if end < 0 || i+2 >= len(body) || body[i+2] != '{' {
				return "", fmt.Errorf("%w: malformed \\N{...} escape", ErrSyntax)
			}
			b.WriteString(body[i : i+end+1])
			i += end + 1
		default:
			n, consumed, err := decodeCommonEscape(body, i)
			if err != nil {
				return "", err
			}
			switch {
			case n >= 0:
				b.WriteRune(rune(n))
			case n == -1:
				b.WriteString(body[i : i+consumed])
			}
			i += consumed
		}
	}
	return b.String(), nil
}

// decodeBytes processes escape sequences in the body of a bytes literal.
func decodeBytes(body string, raw bool) ([]byte, error) {
	for i := 0; i < len(body); i++ {
		if body[i] >= utf8.RuneSelf {
			return nil, fmt.Errorf("%w: bytes can only contain ASCII literal characters", ErrSyntax)
		}
	}
	if raw || !strings.Contains(body, `\`) {
		return []byte(body), nil
	}

	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			out = append(out, c)
			i++
			continue
		}
		n, consumed, err := decodeCommonEscape(body, i)
		if err != nil {
			return nil, err
		}
		switch {
		case n >= 0:
			out = append(out, byte(n))
		case n == -1:
			out = append(out, body[i:i+consumed]...)
		}
		i += consumed
	}
	return out, nil
}

// decodeCommonEscape decodes the escapes shared by str and bytes literals
// starting at body[i] == '\\'. It returns the decoded value, or -1 when the
// sequence is not an escape and must be kept verbatim, plus the bytes consumed.
// A backslash-newline yields -2 and is dropped.
func decodeCommonEscape(body string, i int) (int, int, error) {
	esc := body[i+1]
	switch esc {
	case '\n':
		return -2, 2, nil
	case '\\', '\'', '"':
		return int(esc), 2, nil
	case 'a':
		return '\a', 2, nil
	case 'b':
		return '\b', 2, nil
	case 'f':
		return '\f', 2, nil
	case 'n':
		return '\n', 2, nil
	case 'r':
		return '\r', 2, nil
	case 't':
		return '\t', 2, nil
	case 'v':
		return '\v', 2, nil
	case 'x':
		v, ok := parseHex(body, i+2, 2)
		if !ok {
			return 0, 0, fmt.Errorf("%w: truncated \\xXX escape", ErrSyntax)
		}
		return v, 4, nil
	}
	if isOctal(esc) {
		j := i + 1
		v := 0
		for j < len(body) && j < i+4 && isOctal(body[j]) {
			v = v*8 + int(body[j]-'0')
			j++
		}
		return v & 0x1ff, j - i, nil
	}
	return -1, 2, nil
}

func parseHex(s string, start, width int) (int, bool) {
	if start+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// parseNumber converts an integer or float token into a literal.
func parseNumber(text string) (syntax.Literal, error) {
	clean := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(clean)

	if strings.HasSuffix(lower, "j") {
		f, err := parseFloat(lower[:len(lower)-1])
		if err != nil {
			return syntax.Literal{}, err
		}
		return syntax.ComplexLiteral(f), nil
	}

	if strings.HasSuffix(lower, "l") {
		return syntax.Literal{}, fmt.Errorf("%w: long integer suffix in %q", ErrSyntax, text)
	}

	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		i, ok := new(big.Int).SetString(lower, 0)
		if !ok {
			return syntax.Literal{}, fmt.Errorf("%w: invalid integer %q", ErrSyntax, text)
		}
		return syntax.IntLiteral(i), nil
	}

	if !strings.ContainsAny(lower, ".e") {
		if len(lower) > 1 && lower[0] == '0' && strings.Trim(lower, "0") != "" {
			return syntax.Literal{}, fmt.Errorf("%w: leading zeros in decimal integer %q", ErrSyntax, text)
		}
		i, ok := new(big.Int).SetString(lower, 10)
		if !ok {
			return syntax.Literal{}, fmt.Errorf("%w: invalid integer %q", ErrSyntax, text)
		}
		return syntax.IntLiteral(i), nil
	}

	f, err := parseFloat(lower)
	if err != nil {
		return syntax.Literal{}, err
	}
	return syntax.FloatLiteral(f), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: invalid number %q", ErrSyntax, s)
	}
	return f, nil
}
