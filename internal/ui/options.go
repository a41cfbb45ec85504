/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"pagecraft/internal/layout"
	"pagecraft/internal/tables"
	"pagecraft/internal/undo"
)

// Options configures the desktop editor.
type Options struct {
	// Page is a captured HTML page whose elements carry data-rect geometry.
	Page    string
	DataDir string
	MinSize float64
	Limits  tables.Limits
	Undo    *undo.Manager
	Layouts *layout.Manager
	// Theme is "light", "dark" or "system" (empty means system).
	Theme string
}
