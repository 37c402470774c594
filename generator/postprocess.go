package generator

import (
	"errors"
	"strings"
)

const excerptRunes = 200

// PostProcess 校验模型输出的 Markdown，去掉模型偶尔包裹的代码块围栏。
func PostProcess(raw string) (string, error) {
	md := stripFence(strings.TrimSpace(raw))
	if md == "" {
		return "", errors.New("model returned empty markdown")
	}
	return md, nil
}

// stripFence removes one outer ``` fence (with or without a language tag).
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
