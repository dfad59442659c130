package xmltree

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
)

// Element is a single node of a parsed or composed XML document.
type Element struct {
	e *etree.Element
}

// Parse reads an XML document and returns its root element.
//
// Documents declaring a windows-1251 charset are transcoded on the fly;
// 1C installations older than 8.2 still export in that encoding.
func Parse(data []byte) (*Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parsing xml: document has no root element")
	}
	return &Element{e: root}, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "":
		return input, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

// New creates a detached element, the starting point of the compose path.
func New(tag string) *Element {
	return &Element{e: etree.NewElement(tag)}
}

// Tag returns the element's tag name.
func (el *Element) Tag() string {
	return el.e.Tag
}

// Text returns the element's character data.
func (el *Element) Text() string {
	return el.e.Text()
}

// Path returns the element's path computed from the document root,
// e.g. "/КоммерческаяИнформация/Каталог/Товары/Товар".
func (el *Element) Path() string {
	return el.e.GetPath()
}

// SetText replaces the element's character data.
func (el *Element) SetText(text string) {
	el.e.SetText(text)
}

// SetAttr sets an attribute on the element.
func (el *Element) SetAttr(key, value string) {
	el.e.CreateAttr(key, value)
}

// CreateChild appends a new empty child element and returns it.
func (el *Element) CreateChild(tag string) *Element {
	return &Element{e: el.e.CreateElement(tag)}
}

// CreateText appends a new child element holding the given text.
func (el *Element) CreateText(tag, text string) *Element {
	child := el.CreateChild(tag)
	child.SetText(text)
	return child
}

// Append attaches a previously composed element as the last child.
func (el *Element) Append(child *Element) {
	el.e.AddChild(child.e)
}

// WriteXML serializes the element as a standalone UTF-8 document with an
// XML declaration. The element becomes the root of the written document.
func (el *Element) WriteXML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(el.e)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing xml: %w", err)
	}
	return data, nil
}

// findOne resolves a path to at most one child element.
func (el *Element) findOne(path string) *Element {
	found := el.e.FindElement(path)
	if found == nil {
		return nil
	}
	return &Element{e: found}
}

// findAll resolves a path to every matching child element, in document order.
func (el *Element) findAll(path string) []*Element {
	found := el.e.FindElements(path)
	if len(found) == 0 {
		return nil
	}
	out := make([]*Element, len(found))
	for i, e := range found {
		out[i] = &Element{e: e}
	}
	return out
}

// attr returns the raw attribute value and whether it is present.
func (el *Element) attr(name string) (string, bool) {
	a := el.e.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}
