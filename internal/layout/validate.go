/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"pagecraft/internal/domain"
)

//go:embed schema.json
var schemaJSON []byte

// RequiredFields must be present in every imported layout document.
var RequiredFields = []string{"id", "name", "components"}

// ErrMalformed reports a document that is not parseable JSON.
var ErrMalformed = errors.New("layout: malformed document")

// ValidationError lists why a document was rejected.
type ValidationError struct {
	Missing  []string
	Problems []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return "invalid layout: " + strings.Join(parts, "; ")
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
	validate   = validator.New()
)

func layoutSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Decode checks data in three passes (required fields, JSON schema, struct
// rules) and returns the decoded configuration. Unknown fields are accepted.
func Decode(data []byte) (domain.Configuration, error) {
	var cfg domain.Configuration
	if !gjson.ValidBytes(data) {
		return cfg, fmt.Errorf("%w: not valid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return cfg, &ValidationError{Problems: []string{"document is not an object"}}
	}
	var missing []string
	for _, f := range RequiredFields {
		if !doc.Get(f).Exists() {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return cfg, &ValidationError{Missing: missing}
	}

	s, err := layoutSchema()
	if err != nil {
		return cfg, fmt.Errorf("load layout schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !res.Valid() {
		ve := &ValidationError{}
		for _, re := range res.Errors() {
			ve.Problems = append(ve.Problems, re.String())
		}
		return cfg, ve
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(cfg); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) {
			ve := &ValidationError{}
			for _, fe := range fes {
				ve.Problems = append(ve.Problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return cfg, ve
		}
		return cfg, fmt.Errorf("validate layout: %w", err)
	}
	return cfg, nil
}
