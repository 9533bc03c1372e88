/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"sheetdesigner/internal/domain"
)

//go:embed template.schema.json
var templateSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(templateSchema)

// Format of serialized template text.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown template format %q", s)
}

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatJSON
	}
	return f
}

// Marshal serializes t as pretty-printed text.
func Marshal(t domain.TemplateData, f Format) ([]byte, error) {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	switch f {
	case FormatJSON, "":
		return append(b, '\n'), nil
	case FormatYAML:
		return jsonToYAML(b)
	}
	return nil, fmt.Errorf("unknown template format %q", f)
}

// jsonToYAML re-encodes JSON as block-style YAML keeping key order.
func jsonToYAML(b []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	clearStyle(&doc)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// Parse decodes template text in either format. The live template is never
// involved; callers install the result only when Success is true.
func Parse(text []byte) (domain.TemplateData, Result) {
	raw, res := normalize(text)
	if !res.Success {
		return domain.TemplateData{}, res
	}

	vr, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.TemplateData{}, Fail(CodeInvalidFormat, "schema check: %v", err)
	}
	if !vr.Valid() {
		msgs := make([]string, 0, len(vr.Errors()))
		for _, e := range vr.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.TemplateData{}, Fail(CodeInvalidFormat, "invalid template: %s", strings.Join(msgs, "; "))
	}

	var head struct {
		SchemaVersion *string `json:"schemaVersion"`
	}
	_ = json.Unmarshal(raw, &head)
	if head.SchemaVersion == nil || *head.SchemaVersion != domain.SchemaVersion {
		got := "missing"
		if head.SchemaVersion != nil {
			got = *head.SchemaVersion
		}
		r := Fail(CodeUnsupportedSchemaVersion, "unsupported schema version %q (supported: %s)", got, domain.SchemaVersion)
		r.Warnings = []string{fmt.Sprintf("upgrade the template to schema version %s before importing", domain.SchemaVersion)}
		return domain.TemplateData{}, r
	}

	var t domain.TemplateData
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.TemplateData{}, Fail(CodeInvalidFormat, "decode template: %v", err)
	}
	if t.Regions == nil {
		t.Regions = []domain.Region{}
	}
	return t, OK()
}

// normalize turns JSON or YAML text into canonical JSON bytes of an object.
func normalize(text []byte) ([]byte, Result) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return nil, Fail(CodeMalformedText, "template text is empty")
	}
	var v any
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, Fail(CodeMalformedText, "parse json: %v", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &v); err != nil {
			return nil, Fail(CodeMalformedText, "parse yaml: %v", err)
		}
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, Fail(CodeMalformedText, "template text is not an object")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, Fail(CodeMalformedText, "normalize: %v", err)
	}
	return raw, OK()
}
