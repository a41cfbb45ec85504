/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package htmltree

import "strings"

// inlineStyle is an ordered declaration list of a style attribute.
type inlineStyle struct {
	props []string
	vals  map[string]string
}

func parseStyle(s string) *inlineStyle {
	st := &inlineStyle{vals: map[string]string{}}
	for _, decl := range strings.Split(s, ";") {
		i := strings.IndexByte(decl, ':')
		if i < 0 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(decl[:i]))
		v := strings.TrimSpace(decl[i+1:])
		if k == "" {
			continue
		}
		st.set(k, v)
	}
	return st
}

func (s *inlineStyle) get(k string) string { return s.vals[k] }

func (s *inlineStyle) set(k, v string) {
	if v == "" {
		if _, ok := s.vals[k]; !ok {
			return
		}
		delete(s.vals, k)
		for i, p := range s.props {
			if p == k {
				s.props = append(s.props[:i], s.props[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := s.vals[k]; !ok {
		s.props = append(s.props, k)
	}
	s.vals[k] = v
}

func (s *inlineStyle) String() string {
	parts := make([]string, 0, len(s.props))
	for _, p := range s.props {
		parts = append(parts, p+": "+s.vals[p])
	}
	return strings.Join(parts, "; ")
}
