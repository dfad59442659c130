package cml

import (
	"fmt"

	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

// Classifier is the taxonomy describing how products are organized:
// a group hierarchy, product properties, categories and units of measure.
type Classifier struct {
	ID         string
	Name       string
	Owners     []*Partner
	Groups     []*Group
	Properties []*Property
	Categories []*Category
	Units      []*Unit
}

// ParseClassifier decodes a Классификатор element.
func ParseClassifier(el *xmltree.Element) (*Classifier, error) {
	d := xmltree.NewDecoder(el)
	c := &Classifier{
		ID:         xmltree.Find(d, "Ид", xmltree.String),
		Name:       xmltree.Find(d, "Наименование", xmltree.String),
		Owners:     xmltree.ObjAll(d, "Владелец", ParsePartner),
		Groups:     xmltree.ObjAll(d, "Группы/Группа", ParseGroup),
		Properties: xmltree.ObjAll(d, "Свойства/Свойство", ParseProperty),
		Categories: xmltree.ObjAll(d, "Категории/Категория", ParseCategory),
		Units:      xmltree.ObjAll(d, "ЕдиницыИзмерения/ЕдиницаИзмерения", ParseUnit),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Partner identifies the owner of a classifier, catalogue or offers pack.
type Partner struct {
	ID   string
	Name string
}

// ParsePartner decodes a Владелец element.
func ParsePartner(el *xmltree.Element) (*Partner, error) {
	d := xmltree.NewDecoder(el)
	p := &Partner{
		ID:   xmltree.FindOr(d, "Ид", xmltree.String, ""),
		Name: xmltree.FindOr(d, "Наименование", xmltree.String, ""),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Group is one node of the classification hierarchy. A group exclusively
// owns its child groups; the protocol guarantees the hierarchy is a tree.
type Group struct {
	ID          string
	Name        string
	Description string
	Groups      []*Group
}

// ParseGroup decodes a Группа element, recursing into nested groups.
func ParseGroup(el *xmltree.Element) (*Group, error) {
	d := xmltree.NewDecoder(el)
	g := &Group{
		ID:          xmltree.Find(d, "Ид", xmltree.String),
		Name:        xmltree.Find(d, "Наименование", xmltree.String),
		Description: xmltree.FindOr(d, "Описание", xmltree.String, ""),
		Groups:      xmltree.ObjAll(d, "Группы/Группа", ParseGroup),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// PropertyType enumerates the value types a classifier property may take.
// Boolean values travel as strings ("Да"/"Нет").
type PropertyType string

const (
	PropertyString   PropertyType = "Строка"
	PropertyNumber   PropertyType = "Число"
	PropertyDateTime PropertyType = "Время"
	PropertyList     PropertyType = "Справочник"
)

func parsePropertyType(s string) (PropertyType, error) {
	switch t := PropertyType(s); t {
	case PropertyString, PropertyNumber, PropertyDateTime, PropertyList:
		return t, nil
	default:
		return "", fmt.Errorf("unknown property type %q", s)
	}
}

// Property describes one product attribute declared by the classifier.
type Property struct {
	ID          string
	Name        string
	Type        PropertyType
	Multi       bool
	Required    bool
	ForProducts bool

	// Variants holds plain recommended values for free-text properties.
	Variants []string
	// VariantList holds the bounded value dictionary for PropertyList
	// properties; product values reference these by id.
	VariantList []*PropertyVariant
}

// ParseProperty decodes a Свойство element.
func ParseProperty(el *xmltree.Element) (*Property, error) {
	d := xmltree.NewDecoder(el)
	p := &Property{
		ID:          xmltree.Find(d, "Ид", xmltree.String),
		Name:        xmltree.Find(d, "Наименование", xmltree.String),
		Type:        xmltree.Find(d, "ТипЗначений", parsePropertyType),
		Multi:       xmltree.FindOr(d, "Множественное", xmltree.Bool, false),
		Required:    xmltree.FindOr(d, "Обязательное", xmltree.Bool, false),
		ForProducts: xmltree.Find(d, "ДляТоваров", xmltree.Bool),
		Variants:    xmltree.FindAll(d, "ВариантыЗначений/*/Значение", xmltree.String),
	}
	if p.Type == PropertyList {
		p.VariantList = xmltree.ObjAll(d, "ВариантыЗначений/Справочник", ParsePropertyVariant)
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// PropertyVariant is one entry of a bounded property value dictionary.
type PropertyVariant struct {
	ID    string
	Value string
}

// ParsePropertyVariant decodes a Справочник variant element.
func ParsePropertyVariant(el *xmltree.Element) (*PropertyVariant, error) {
	d := xmltree.NewDecoder(el)
	v := &PropertyVariant{
		ID:    xmltree.Find(d, "ИдЗначения", xmltree.String),
		Value: xmltree.Find(d, "Значение", xmltree.String),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// Category groups properties for presentation. Property ids may dangle:
// 1C exports references to properties absent from the classifier, and
// consumers must tolerate unknown ids.
type Category struct {
	ID          string
	Name        string
	PropertyIDs []string
}

// ParseCategory decodes a Категория element.
func ParseCategory(el *xmltree.Element) (*Category, error) {
	d := xmltree.NewDecoder(el)
	c := &Category{
		ID:          xmltree.Find(d, "Ид", xmltree.String),
		Name:        xmltree.Find(d, "Наименование", xmltree.String),
		PropertyIDs: xmltree.FindAll(d, "Свойства/Ид", xmltree.String),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Unit is a unit of measure, either declared by the classifier or
// referenced inline from products and offers.
type Unit struct {
	Code          int
	NameFull      string
	International string
}

// DefaultUnit returns the piece unit (ОКЕИ code 796) used when a producer
// omits the base unit.
func DefaultUnit() *Unit {
	return &Unit{Code: 796, NameFull: "Штука", International: "PCE"}
}

// ParseUnit decodes an ЕдиницаИзмерения declaration element.
func ParseUnit(el *xmltree.Element) (*Unit, error) {
	d := xmltree.NewDecoder(el)
	u := &Unit{
		Code:          xmltree.Find(d, "Код", xmltree.Int),
		NameFull:      xmltree.Find(d, "НаименованиеПолное", xmltree.String),
		International: xmltree.FindOr(d, "МеждународноеСокращение", xmltree.String, ""),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

// ParseUnitRef decodes the attribute form (БазоваяЕдиница) embedded in
// products, offers and document line items.
func ParseUnitRef(el *xmltree.Element) (*Unit, error) {
	d := xmltree.NewDecoder(el)
	u := &Unit{
		Code:          xmltree.Attr(d, "Код", xmltree.Int),
		NameFull:      xmltree.Attr(d, "НаименованиеПолное", xmltree.String),
		International: xmltree.Attr(d, "МеждународноеСокращение", xmltree.String),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

// ComposeRef renders the unit in its attribute form under the given tag.
func (u *Unit) ComposeRef(tag string) *xmltree.Element {
	el := xmltree.New(tag)
	el.SetAttr("Код", fmt.Sprintf("%d", u.Code))
	el.SetAttr("НаименованиеПолное", u.NameFull)
	el.SetAttr("МеждународноеСокращение", u.International)
	return el
}
