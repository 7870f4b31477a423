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

// Package schema implements the Model Registry: a description of a message
// type's field set and the canonical-JSON digest derived from it. The digest
// is the primary routing key for protocols, dialogues, and the dispatcher.
package schema

import "fmt"

// Kind is a primitive or structural field type.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field describes one named field of a Model.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Items describes the element type when Kind == KindArray.
	Items *Field
	// Model names a nested model when Kind == KindObject and the field is a
	// reference to another registered model rather than an inline object.
	Model *Model
}

// Model is a typed record: a title and an ordered field set. Field order in
// Go source is irrelevant to the digest (§4.2: "stable under field
// reordering") because canonicalization sorts keys before hashing.
type Model struct {
	Title  string
	Fields []Field
}

// New builds a Model from a title and field list. It does not validate
// field names for uniqueness, and digesting does not reject duplicates
// either: the canonicalizer's properties map keeps the last field of a
// name (matching encoding/json semantics), and "required" lists the name
// once per required field that carries it.
func New(title string, fields ...Field) *Model {
	return &Model{Title: title, Fields: fields}
}

// String returns a primitive required string field.
func String(name string) Field { return Field{Name: name, Kind: KindString} }

// Integer returns a primitive required integer field.
func Integer(name string) Field { return Field{Name: name, Kind: KindInteger} }

// Number returns a primitive required floating-point field.
func Number(name string) Field { return Field{Name: name, Kind: KindNumber} }

// Boolean returns a primitive required boolean field.
func Boolean(name string) Field { return Field{Name: name, Kind: KindBoolean} }

// Optional marks any field as optional: per §4.2's tie-break rule, a field
// with a nullable default is omitted from the schema's "required" list.
func Optional(f Field) Field {
	f.Optional = true
	return f
}

// ListOf returns an array field whose items follow the given element field.
// Per §4.2: "a list of T serializes as {"type":"array","items":<T>}".
func ListOf(name string, item Field) Field {
	item.Name = ""
	return Field{Name: name, Kind: KindArray, Items: &item}
}

// NestedModel returns an object field referencing another Model inline.
func NestedModel(name string, model *Model) Field {
	return Field{Name: name, Kind: KindObject, Model: model}
}

func (f Field) validate() error {
	switch f.Kind {
	case KindArray:
		if f.Items == nil {
			return fmt.Errorf("schema: array field %q missing item type", f.Name)
		}
	case KindObject:
		if f.Model == nil {
			return fmt.Errorf("schema: object field %q missing nested model", f.Name)
		}
	}
	return nil
}
