package store

import (
	"strings"
	"unicode"
)

// Term is one word or phrase of a search expression.
type Term struct {
	Text    string
	Exclude bool
}

// Group is a conjunction of terms.
type Group []Term

// ParseSearch splits a search expression into OR-separated groups of ANDed
// terms. "quoted text" is one term, a leading '-' excludes a term, the
// keyword OR starts a new group and AND is accepted as a no-op.
func ParseSearch(s string) []Group {
	var (
		groups []Group
		cur    Group
	)
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur = nil
	}

	rs := []rune(s)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}

		exclude := false
		if rs[i] == '-' {
			exclude = true
			i++
			if i >= len(rs) || unicode.IsSpace(rs[i]) {
				continue
			}
		}

		var text string
		quoted := rs[i] == '"'
		if quoted {
			i++
			start := i
			for i < len(rs) && rs[i] != '"' {
				i++
			}
			text = strings.TrimSpace(string(rs[start:i]))
			if i < len(rs) {
				i++
			}
		} else {
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) {
				i++
			}
			text = string(rs[start:i])
		}

		if !quoted && !exclude {
			switch text {
			case "OR":
				flush()
				continue
			case "AND":
				continue
			}
		}
		if text != "" {
			cur = append(cur, Term{Text: text, Exclude: exclude})
		}
	}
	flush()
	return groups
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// matchAny builds "any of columns contains text".
func (b *builder) matchAny(columns []string, text string) string {
	p := containsPattern(text)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = "COALESCE(CAST(" + quoteIdent(c) + " AS TEXT), '') " + b.d.like + " " + b.arg(p) + ` ESCAPE '\'`
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// addSearch adds the condition for a parsed search expression.
func (b *builder) addSearch(columns []string, groups []Group) {
	if len(groups) == 0 || len(columns) == 0 {
		return
	}
	ors := make([]string, 0, len(groups))
	for _, g := range groups {
		ands := make([]string, 0, len(g))
		for _, t := range g {
			c := b.matchAny(columns, t.Text)
			if t.Exclude {
				c = "NOT " + c
			}
			ands = append(ands, c)
		}
		ors = append(ors, "("+strings.Join(ands, " AND ")+")")
	}
	b.conds = append(b.conds, "("+strings.Join(ors, " OR ")+")")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
