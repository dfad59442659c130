package xmltree

import (
	"fmt"
	"strconv"
)

// TextFunc converts the character data of an element or attribute into a
// typed value.
type TextFunc[T any] func(string) (T, error)

// ParseFunc builds a typed value from a whole element, enabling recursive
// entity parsing.
type ParseFunc[T any] func(*Element) (T, error)

// Decoder drives the lookups of one entity parser. The first failing
// lookup records its error; subsequent lookups still run but return zero
// values, so parsers stay flat and check [Decoder.Err] once at the end.
type Decoder struct {
	el  *Element
	err error
}

// NewDecoder returns a decoder positioned at el.
func NewDecoder(el *Element) *Decoder {
	return &Decoder{el: el}
}

// Err returns the first error any lookup on this decoder produced.
func (d *Decoder) Err() error {
	return d.err
}

// Element returns the element the decoder is positioned at.
func (d *Decoder) Element() *Element {
	return d.el
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Attr returns the converted value of a required attribute. A missing
// attribute records a NotFoundError, a rejected value a ConvertError.
func Attr[T any](d *Decoder, name string, conv TextFunc[T]) T {
	var zero T
	raw, ok := d.el.attr(name)
	if !ok {
		d.fail(&NotFoundError{Path: attrPath(d.el, name)})
		return zero
	}
	return convertAttr(d, name, raw, conv)
}

// AttrOr returns the converted value of an optional attribute, or def when
// the attribute is absent.
func AttrOr[T any](d *Decoder, name string, conv TextFunc[T], def T) T {
	raw, ok := d.el.attr(name)
	if !ok {
		return def
	}
	return convertAttr(d, name, raw, conv)
}

func convertAttr[T any](d *Decoder, name, raw string, conv TextFunc[T]) T {
	v, err := conv(raw)
	if err != nil {
		d.fail(&ConvertError{Path: attrPath(d.el, name), Value: raw, Err: err})
		var zero T
		return zero
	}
	return v
}

func attrPath(el *Element, name string) string {
	return el.Path() + "[@" + name + "]"
}

// Find returns the converted text of a required child element. A missing
// element records a NotFoundError. An element that is present but empty
// yields the zero value without calling the converter.
func Find[T any](d *Decoder, path string, conv TextFunc[T]) T {
	var zero T
	child := d.el.findOne(path)
	if child == nil {
		d.fail(&NotFoundError{Path: d.el.Path() + "/" + path})
		return zero
	}
	return convertText(d, child, conv, zero)
}

// FindOr returns the converted text of an optional child element, or def
// when the element is absent or empty.
func FindOr[T any](d *Decoder, path string, conv TextFunc[T], def T) T {
	child := d.el.findOne(path)
	if child == nil {
		return def
	}
	return convertText(d, child, conv, def)
}

func convertText[T any](d *Decoder, child *Element, conv TextFunc[T], def T) T {
	raw := child.Text()
	if raw == "" {
		// Never hand empty character data to a converter.
		return def
	}
	v, err := conv(raw)
	if err != nil {
		d.fail(&ConvertError{Path: child.Path(), Value: raw, Err: err})
		var zero T
		return zero
	}
	return v
}

// Obj parses a required child element into an entity.
func Obj[T any](d *Decoder, path string, parse ParseFunc[T]) T {
	var zero T
	child := d.el.findOne(path)
	if child == nil {
		d.fail(&NotFoundError{Path: d.el.Path() + "/" + path})
		return zero
	}
	v, err := parse(child)
	if err != nil {
		d.fail(err)
		return zero
	}
	return v
}

// ObjOpt parses an optional child element into an entity, returning the
// zero value (nil for pointer entities) when the element is absent. This
// is how "no section in this message" stays distinguishable from "empty
// section".
func ObjOpt[T any](d *Decoder, path string, parse ParseFunc[T]) T {
	var zero T
	child := d.el.findOne(path)
	if child == nil {
		return zero
	}
	v, err := parse(child)
	if err != nil {
		d.fail(err)
		return zero
	}
	return v
}

// FindAll returns the converted texts of every element matched by path, in
// document order. Elements with empty character data are silently skipped.
// A converter failure aborts the whole lookup, naming the offending index.
func FindAll[T any](d *Decoder, path string, conv TextFunc[T]) []T {
	els := d.el.findAll(path)
	if len(els) == 0 {
		return nil
	}
	out := make([]T, 0, len(els))
	for i, child := range els {
		raw := child.Text()
		if raw == "" {
			continue
		}
		v, err := conv(raw)
		if err != nil {
			d.fail(&ConvertError{
				Path:  fmt.Sprintf("%s/%s[%d]", d.el.Path(), path, i),
				Value: raw,
				Err:   err,
			})
			return nil
		}
		out = append(out, v)
	}
	return out
}

// FindAllReq is FindAll with at least one converted value required.
func FindAllReq[T any](d *Decoder, path string, conv TextFunc[T]) []T {
	out := FindAll(d, path, conv)
	if len(out) == 0 {
		d.fail(&NotFoundError{Path: d.el.Path() + "/" + path})
	}
	return out
}

// ObjAll parses every element matched by path into entities, in document
// order. A parse failure aborts the whole lookup.
func ObjAll[T any](d *Decoder, path string, parse ParseFunc[T]) []T {
	els := d.el.findAll(path)
	if len(els) == 0 {
		return nil
	}
	out := make([]T, 0, len(els))
	for _, child := range els {
		v, err := parse(child)
		if err != nil {
			d.fail(err)
			return nil
		}
		out = append(out, v)
	}
	return out
}

// ObjAllReq is ObjAll with at least one entity required.
func ObjAllReq[T any](d *Decoder, path string, parse ParseFunc[T]) []T {
	out := ObjAll(d, path, parse)
	if len(out) == 0 {
		d.fail(&NotFoundError{Path: d.el.Path() + "/" + path})
	}
	return out
}

// Elements returns the raw elements matched by path for lookups too
// irregular for the typed helpers.
func Elements(d *Decoder, path string) []*Element {
	return d.el.findAll(path)
}

// Stock converters for CommerceML scalar fields.

// String returns the raw text unchanged.
func String(s string) (string, error) {
	return s, nil
}

// Int parses a base-10 integer.
func Int(s string) (int, error) {
	return strconv.Atoi(s)
}

// Float parses a decimal number.
func Float(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Bool parses the CommerceML boolean encoding: "true" is true, anything
// else is false.
func Bool(s string) (bool, error) {
	return s == "true", nil
}
