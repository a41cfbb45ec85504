/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"strings"
)

// Selector is a parsed selector list. Supported subset:
//   - tag: "table", "nav"
//   - #id, .class and their compounds: "div.menu#main"
//   - [attr], [attr=v], [attr*=v], [attr^=v] with optional quotes
//   - descendant combinator: "thead tr"
//   - comma separated alternatives: "nav, [role=menu]"
type Selector struct {
	alts [][]compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key string
	op  byte // 0 presence, '=' exact, '*' substring, '^' prefix
	val string
}

// Compile parses a selector list. Unknown syntax degrades to a selector that
// matches nothing for that alternative.
func Compile(sel string) Selector {
	var s Selector
	for _, alt := range splitOutside(sel, ',') {
		parts := splitFieldsOutside(alt)
		if len(parts) == 0 {
			continue
		}
		cs := make([]compound, 0, len(parts))
		for _, p := range parts {
			cs = append(cs, parseCompound(p))
		}
		s.alts = append(s.alts, cs)
	}
	return s
}

// Match reports whether h matches any alternative of s.
func (s Selector) Match(t Tree, h Handle) bool {
	for _, alt := range s.alts {
		if matchComplex(t, h, alt) {
			return true
		}
	}
	return false
}

// QueryAll returns every descendant of root matching sel, in document order.
func QueryAll(t Tree, root Handle, sel string) []Handle {
	return Compile(sel).All(t, root)
}

// Query returns the first descendant of root matching sel, or None.
func Query(t Tree, root Handle, sel string) Handle {
	s := Compile(sel)
	var found Handle
	for _, c := range t.Children(root) {
		Walk(t, c, func(h Handle) bool {
			if found != None {
				return false
			}
			if s.Match(t, h) {
				found = h
				return false
			}
			return true
		})
		if found != None {
			break
		}
	}
	return found
}

// Matches reports whether h matches sel.
func Matches(t Tree, h Handle, sel string) bool { return Compile(sel).Match(t, h) }

// All returns every descendant of root matching s, in document order.
func (s Selector) All(t Tree, root Handle) []Handle {
	var out []Handle
	for _, c := range t.Children(root) {
		Walk(t, c, func(h Handle) bool {
			if s.Match(t, h) {
				out = append(out, h)
			}
			return true
		})
	}
	return out
}

// matchComplex matches right to left: the last compound against h, earlier
// compounds against successive ancestors.
func matchComplex(t Tree, h Handle, cs []compound) bool {
	last := len(cs) - 1
	if !cs[last].match(t, h) {
		return false
	}
	n := t.Parent(h)
	for i := last - 1; i >= 0; i-- {
		for n != None && !cs[i].match(t, n) {
			n = t.Parent(n)
		}
		if n == None {
			return false
		}
		n = t.Parent(n)
	}
	return true
}

func (c compound) match(t Tree, h Handle) bool {
	if c.tag != "" && c.tag != "*" && !strings.EqualFold(t.Tag(h), c.tag) {
		return false
	}
	if c.id != "" {
		if v, _ := t.Attr(h, "id"); v != c.id {
			return false
		}
	}
	for _, cl := range c.classes {
		if !HasClass(t, h, cl) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := t.Attr(h, a.key)
		if !ok {
			return false
		}
		switch a.op {
		case '=':
			if v != a.val {
				return false
			}
		case '*':
			if a.val == "" || !strings.Contains(v, a.val) {
				return false
			}
		case '^':
			if a.val == "" || !strings.HasPrefix(v, a.val) {
				return false
			}
		}
	}
	return true
}

func parseCompound(sel string) compound {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(sel) && sel[i] != '.' && sel[i] != '#' && sel[i] != '[' {
			i++
		}
		return sel[start:i]
	}
	c.tag = strings.ToLower(readName())
	for i < len(sel) {
		switch sel[i] {
		case '#':
			i++
			c.id = readName()
		case '.':
			i++
			c.classes = append(c.classes, readName())
		case '[':
			end := strings.IndexByte(sel[i:], ']')
			if end < 0 {
				end = len(sel) - i
			}
			c.attrs = append(c.attrs, parseAttr(sel[i+1:i+end]))
			i += end + 1
		default:
			i++
		}
	}
	return c
}

func parseAttr(s string) attrMatch {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return attrMatch{key: strings.TrimSpace(s)}
	}
	a := attrMatch{op: '='}
	key := s[:eq]
	if n := len(key); n > 0 && (key[n-1] == '*' || key[n-1] == '^') {
		a.op = key[n-1]
		key = key[:n-1]
	}
	a.key = strings.TrimSpace(key)
	a.val = strings.Trim(strings.TrimSpace(s[eq+1:]), `"'`)
	return a
}

// splitOutside splits s on sep, ignoring separators inside brackets or quotes.
func splitOutside(s string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == sep && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func splitFieldsOutside(s string) []string {
	var out []string
	for _, f := range splitOutside(strings.Join(strings.Fields(s), " "), ' ') {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
