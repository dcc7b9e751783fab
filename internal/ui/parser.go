package ui

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// ParseCSS parses a stylesheet. Only simple .class and #id selectors are kept; at-rules and
// selectors with combinators are skipped. A rule with several selectors ("a, b") becomes one
// Rule per selector, in source order, so later rules still override earlier ones.
func ParseCSS(content string) (*Stylesheet, error) {
	parsed, err := parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("ui: parse css: %w", err)
	}
	sheet := &Stylesheet{}
	for _, r := range parsed.Rules {
		if r.Kind == css.AtRule {
			continue
		}
		props := make(map[string]string, len(r.Declarations))
		for _, d := range r.Declarations {
			props[strings.ToLower(d.Property)] = strings.TrimSpace(d.Value)
		}
		for _, sel := range r.Selectors {
			sel = strings.TrimSpace(sel)
			if !simpleSelector(sel) {
				continue
			}
			sheet.Rules = append(sheet.Rules, Rule{Selector: sel, Props: props})
		}
	}
	return sheet, nil
}

func simpleSelector(sel string) bool {
	if len(sel) < 2 || (sel[0] != '.' && sel[0] != '#') {
		return false
	}
	return !strings.ContainsAny(sel[1:], " >+~.#:[")
}
