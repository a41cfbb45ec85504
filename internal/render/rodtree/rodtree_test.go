/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package rodtree

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/render/htmltree"
)

const captured = `<!DOCTYPE html><html><head></head><body>
<nav id="menu" data-rect="0,0,100,40" data-pc-computed="{&#34;display&#34;:&#34;flex&#34;}"><a href="/b">B</a><a href="/a">A</a></nav>
<p id="gone" data-pc-hidden="true">x</p>
</body></html>`

func TestCleanBodyDropsAnnotations(t *testing.T) {
	tr, err := htmltree.ParseString(captured)
	require.NoError(t, err)

	body, err := cleanBody(tr)
	require.NoError(t, err)
	for _, a := range htmltree.Annotations {
		assert.NotContains(t, body, a+"=")
	}
	assert.Contains(t, body, `<nav id="menu">`)
	assert.True(t, strings.Index(body, "/b") < strings.Index(body, "/a"), "order kept: %s", body)

	// the working tree keeps its geometry for further edits
	assert.Contains(t, tr.String(), `data-rect="0,0,100,40"`)
}

func TestPublishReplacesLiveBody(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a browser")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local Chrome")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	br, err := Open(ctx, Options{Headless: true})
	require.NoError(t, err)
	defer func() { _ = br.Close() }()
	page, err := br.Page(ctx, "about:blank")
	require.NoError(t, err)

	tr, err := htmltree.ParseString(captured)
	require.NoError(t, err)
	require.NoError(t, Publish(ctx, page, tr))

	res, err := page.Eval(`() => document.body.innerHTML`)
	require.NoError(t, err)
	live := res.Value.Str()
	assert.Contains(t, live, `id="menu"`)
	assert.NotContains(t, live, "data-rect")
}
