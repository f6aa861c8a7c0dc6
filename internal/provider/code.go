package provider

import (
	"errors"
	"fmt"
	"strings"
)

// NormalizeCode converts the many spellings of an A-share stock code
// into the canonical lowercase exchange-prefixed form, e.g. "600036" ->
// "sh600036". Accepted inputs: bare six digits, sh/sz prefix in any
// case, exchange suffix (600036.SS, 000001.SZ) and the dotted prefix
// form sh.600036.
func NormalizeCode(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", errors.New("empty stock code")
	}

	if i := strings.IndexByte(s, '.'); i >= 0 {
		head, tail := s[:i], s[i+1:]
		switch {
		case isDigits(head) && (tail == "ss" || tail == "sh"):
			s = "sh" + head
		case isDigits(head) && tail == "sz":
			s = "sz" + head
		case (head == "sh" || head == "sz") && isDigits(tail):
			s = head + tail
		default:
			return "", fmt.Errorf("unrecognized stock code %q", raw)
		}
	}

	if strings.HasPrefix(s, "sh") || strings.HasPrefix(s, "sz") {
		digits := s[2:]
		if len(digits) != 6 || !isDigits(digits) {
			return "", fmt.Errorf("unrecognized stock code %q", raw)
		}
		return s, nil
	}

	if len(s) == 6 && isDigits(s) {
		prefix, err := inferExchange(s)
		if err != nil {
			return "", err
		}
		return prefix + s, nil
	}

	return "", fmt.Errorf("unrecognized stock code %q", raw)
}

// inferExchange maps a bare code to its market by first digit.
func inferExchange(code string) (string, error) {
	switch code[0] {
	case '6', '5', '9': // 6xx stocks, 5xx funds, 9xx B shares
		return "sh", nil
	case '0', '3', '1', '2': // 0xx/3xx stocks, 1xx funds, 2xx B shares
		return "sz", nil
	case '4', '8':
		return "", fmt.Errorf("beijing exchange code %s is not supported", code)
	}
	return "", fmt.Errorf("cannot infer exchange for code %s", code)
}

// Exchange returns the exchange label for a canonical code.
func Exchange(code string) string {
	switch {
	case strings.HasPrefix(code, "sh"):
		return "SSE"
	case strings.HasPrefix(code, "sz"):
		return "SZSE"
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
