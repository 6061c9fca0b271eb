// Package splitter implements the core tree-split algorithm: given a
// multi-language translation document, it produces one reshaped document
// per target language.
//
// The expected input format mixes two shapes freely:
//
//	{
//	    "title": { "vi": "Trang chủ", "en": "Home" },
//	    "menu": {
//	        "settings": { "vi": "Cài đặt", "en": "Settings" }
//	    }
//	}
//
// A node is a Leaf when at least one of its direct keys is a configured
// language code; every other object is a Branch and is descended into.
// Keys containing dots are opaque key names, never path separators.
package splitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// LanguageSet is the configured collection of language codes, kept both
// in request order and as a set for O(1) membership tests.
type LanguageSet struct {
	codes []string
	index map[string]struct{}
}

// NewLanguageSet builds a LanguageSet from an ordered list of codes.
// Duplicates are dropped, first occurrence wins.
func NewLanguageSet(codes []string) LanguageSet {
	s := LanguageSet{index: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if _, dup := s.index[c]; dup || c == "" {
			continue
		}
		s.codes = append(s.codes, c)
		s.index[c] = struct{}{}
	}
	return s
}

// Codes returns the language codes in their configured order.
func (s LanguageSet) Codes() []string { return s.codes }

// Len returns the number of language codes in the set.
func (s LanguageSet) Len() int { return len(s.codes) }

// Contains reports whether code is one of the configured languages.
func (s LanguageSet) Contains(code string) bool {
	_, ok := s.index[code]
	return ok
}

// intersects reports whether any direct key of obj is a language code.
// This is the Leaf/Branch classification predicate: it depends only on
// the key set, never on depth or on which language is being extracted.
func (s LanguageSet) intersects(obj *Object) bool {
	for _, k := range obj.keys {
		if _, ok := s.index[k]; ok {
			return true
		}
	}
	return false
}

// Value is one parsed JSON value. Objects are decoded into an Object so
// they can be classified and descended into; arrays and scalars carry no
// translations and are kept verbatim as raw JSON.
type Value struct {
	Obj *Object
	Raw json.RawMessage
}

// Object is a JSON object with preserved key order. Preserving order is
// what makes the per-language outputs structurally isomorphic to the
// input and to each other.
type Object struct {
	keys []string
	vals map[string]*Value
}

func newObject() *Object {
	return &Object{vals: make(map[string]*Value)}
}

func (o *Object) set(key string, v *Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Len returns the number of keys in the object.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the object's keys in their original order.
func (o *Object) Keys() []string { return o.keys }

// Get returns the value for key and whether it exists.
func (o *Object) Get(key string) (*Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Parse decodes a JSON document into an ordered Object. The root value
// must be a JSON object. Nested objects are decoded with an explicit
// work list, so document depth is not bounded by the call stack.
func Parse(data []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("parsing JSON: document root must be an object")
	}

	root := newObject()

	type item struct {
		obj *Object
		raw []byte
	}
	work := []item{{root, trimmed}}

	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		dec := json.NewDecoder(bytes.NewReader(it.raw))

		t, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		if delim, ok := t.(json.Delim); !ok || delim != '{' {
			return nil, fmt.Errorf("parsing JSON: expected object, got %v", t)
		}

		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parsing JSON: %w", err)
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("parsing JSON: expected string key, got %T", kt)
			}

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("parsing JSON: value of %q: %w", key, err)
			}

			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '{' {
				child := newObject()
				it.obj.set(key, &Value{Obj: child})
				work = append(work, item{child, raw})
			} else {
				it.obj.set(key, &Value{Raw: raw})
			}
		}

		// Consume the closing brace so malformed trailers surface here.
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}

		// The root object must be the whole document. Nested raws are
		// exact slices, so only the root can carry trailing content.
		if it.obj == root {
			if _, err := dec.Token(); err != io.EOF {
				return nil, fmt.Errorf("parsing JSON: trailing content after document")
			}
		}
	}

	return root, nil
}

// Extract walks doc and returns the reshaped document for one language:
// the same branch topology, each Leaf collapsed to its value for lang,
// and Leaves lacking lang omitted entirely. The input is not modified.
// Extraction is pure, so re-running it yields identical output.
//
// Traversal uses an explicit stack of (source, destination) pairs instead
// of recursive descent, so pathologically deep trees cannot exhaust the
// call stack.
func Extract(doc *Object, lang string, set LanguageSet) *Object {
	out := newObject()

	type pair struct {
		src *Object
		dst *Object
	}
	stack := []pair{{doc, out}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, key := range p.src.keys {
			v := p.src.vals[key]
			if v.Obj == nil {
				// Arrays and scalars carry no language data.
				continue
			}

			child := v.Obj
			if lv, ok := child.vals[lang]; ok {
				// Leaf with a value for the requested language.
				p.dst.set(key, lv)
				continue
			}
			if set.intersects(child) {
				// Leaf for other languages, nothing for this one.
				continue
			}

			// Branch: always emitted, even when it ends up empty, so
			// every language sees the same branch skeleton.
			sub := newObject()
			p.dst.set(key, &Value{Obj: sub})
			stack = append(stack, pair{child, sub})
		}
	}

	return out
}

// Languages reports which of the configured language codes actually
// occur in doc's leaves, in configured order.
func Languages(doc *Object, set LanguageSet) []string {
	seen := make(map[string]struct{})

	stack := []*Object{doc}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if set.intersects(obj) {
			for _, k := range obj.keys {
				if set.Contains(k) {
					seen[k] = struct{}{}
				}
			}
			continue
		}
		for _, k := range obj.keys {
			if v := obj.vals[k]; v.Obj != nil {
				stack = append(stack, v.Obj)
			}
		}
	}

	var out []string
	for _, c := range set.codes {
		if _, ok := seen[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CountLeaves returns the number of Leaf nodes in doc.
func CountLeaves(doc *Object, set LanguageSet) int {
	count := 0
	stack := []*Object{doc}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if set.intersects(obj) {
			count++
			continue
		}
		for _, k := range obj.keys {
			if v := obj.vals[k]; v.Obj != nil {
				stack = append(stack, v.Obj)
			}
		}
	}
	return count
}

// MarshalJSON encodes the object compactly with its original key order.
// Like Extract, it runs on an explicit frame stack rather than per-level
// recursion.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	type frame struct {
		obj *Object
		i   int
	}
	stack := []frame{{o, 0}}
	buf.WriteByte('{')

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.i >= len(f.obj.keys) {
			buf.WriteByte('}')
			stack = stack[:len(stack)-1]
			continue
		}

		key := f.obj.keys[f.i]
		if f.i > 0 {
			buf.WriteByte(',')
		}
		f.i++

		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		v := f.obj.vals[key]
		if v.Obj != nil {
			buf.WriteByte('{')
			stack = append(stack, frame{v.Obj, 0})
			continue
		}
		buf.Write(v.Raw)
	}

	return buf.Bytes(), nil
}

// Encode serializes the object as 2-space-indented JSON with a trailing
// newline, the on-disk format of the output files.
func (o *Object) Encode() ([]byte, error) {
	compact, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Result is one extracted per-language document together with the
// destination it should be written to.
type Result struct {
	// Source is the input file the document came from.
	Source string
	// Lang is the extracted language code.
	Lang string
	// Dest is the output file path (outputDir/<lang>/<fileName>).
	Dest string
	// Doc is the reshaped document.
	Doc *Object
}
