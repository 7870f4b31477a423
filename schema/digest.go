// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Digest computes the stable "model:"+hex(sha256(...)) identifier for m.
// encoding/json sorts map[string]interface{} keys lexicographically when
// marshaling, and Marshal itself never emits insignificant whitespace, so
// building the schema as nested maps and calling json.Marshal satisfies
// §4.2's canonicalization rules (sorted keys, compact JSON) without a
// hand-rolled serializer.
func Digest(m *Model) (string, error) {
	canonical, err := Canonical(m)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("schema: marshal canonical form: %w", err)
	}
	sum := sha256.Sum256(data)
	return "model:" + hex.EncodeToString(sum[:]), nil
}

// Canonical builds the { title, type, properties, required } object
// described in §4.2, recursing into nested models and array item types.
// Exported so callers that need the raw schema value (e.g. the protocol
// manifest) don't have to re-hash it.
func Canonical(m *Model) (map[string]interface{}, error) {
	properties := make(map[string]interface{}, len(m.Fields))
	required := make([]string, 0, len(m.Fields))

	for _, f := range m.Fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		fieldSchema, err := fieldType(f)
		if err != nil {
			return nil, err
		}
		properties[f.Name] = fieldSchema
		if !f.Optional {
			required = append(required, f.Name)
		}
	}
	sort.Strings(required)

	return map[string]interface{}{
		"title":      m.Title,
		"type":       "object",
		"properties": properties,
		"required":   required,
	}, nil
}

// fieldType renders a single field's type descriptor, recursing for arrays
// and nested models per the tie-break rules in §4.2.
func fieldType(f Field) (map[string]interface{}, error) {
	switch f.Kind {
	case KindArray:
		items, err := fieldType(*f.Items)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"type": "array", "items": items}, nil
	case KindObject:
		if f.Model != nil {
			return Canonical(f.Model)
		}
		return map[string]interface{}{"type": "object"}, nil
	case KindInteger, KindNumber, KindString, KindBoolean:
		return map[string]interface{}{"type": string(f.Kind)}, nil
	default:
		return nil, fmt.Errorf("schema: unknown field kind %q", f.Kind)
	}
}
