package cml

import (
	"fmt"

	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

// Catalogue is the product listing associated with a classifier.
type Catalogue struct {
	// ContainsChangesOnly marks a delta upload: the product list is not a
	// full snapshot and absent products must not be deleted downstream.
	ContainsChangesOnly bool
	ID                  string
	ClassifierID        string
	Name                string
	Owners              []*Partner
	Products            []*Product
}

// ParseCatalogue decodes a Каталог element.
func ParseCatalogue(el *xmltree.Element) (*Catalogue, error) {
	d := xmltree.NewDecoder(el)
	c := &Catalogue{
		ContainsChangesOnly: xmltree.AttrOr(d, "СодержитТолькоИзменения", xmltree.Bool, false),
		ID:                  xmltree.Find(d, "Ид", xmltree.String),
		ClassifierID:        xmltree.Find(d, "ИдКлассификатора", xmltree.String),
		Name:                xmltree.Find(d, "Наименование", xmltree.String),
		Owners:              xmltree.ObjAll(d, "Владелец", ParsePartner),
		Products:            xmltree.ObjAll(d, "Товары/Товар", ParseProduct),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// ProductStatus is the per-product lifecycle marker of a delta upload.
type ProductStatus string

const (
	ProductNew     ProductStatus = "Новый"
	ProductChanged ProductStatus = "Изменен"
	ProductRemoved ProductStatus = "Удален"
)

func parseProductStatus(s string) (ProductStatus, error) {
	switch st := ProductStatus(s); st {
	case ProductNew, ProductChanged, ProductRemoved:
		return st, nil
	default:
		return "", fmt.Errorf("unknown product status %q", s)
	}
}

// Product is one catalogue item.
type Product struct {
	Status     ProductStatus
	ID         string
	VendorCode string
	Code       string
	Name       string
	Unit       *Unit

	// GroupIDs lists the classifier groups owning the product. A nil
	// slice means the source carried no Группы section at all; what to
	// file such a product under is the consumer's decision.
	GroupIDs    []string
	CategoryID  string
	Description string

	// PropertyValues never contains entries without values; those are
	// dropped at parse time.
	PropertyValues []*PropertyValue
	Requisites     map[string]string

	// Images keeps document order: the first entry is the primary image.
	Images []*FileRef
	Files  []*FileRef
	Taxes  []*Tax
}

// ParseProduct decodes a Товар element.
func ParseProduct(el *xmltree.Element) (*Product, error) {
	d := xmltree.NewDecoder(el)
	p := &Product{
		Status:      xmltree.AttrOr(d, "Статус", parseProductStatus, ProductChanged),
		ID:          xmltree.Find(d, "Ид", xmltree.String),
		VendorCode:  xmltree.Find(d, "Артикул", xmltree.String),
		Code:        xmltree.Find(d, "Код", xmltree.String),
		Name:        xmltree.Find(d, "Наименование", xmltree.String),
		Unit:        xmltree.Obj(d, "БазоваяЕдиница", ParseUnitRef),
		GroupIDs:    xmltree.FindAll(d, "Группы/Ид", xmltree.String),
		CategoryID:  xmltree.Find(d, "Категория", xmltree.String),
		Description: xmltree.FindOr(d, "Описание", xmltree.String, ""),
		Taxes:       xmltree.ObjAll(d, "СтавкиНалогов/СтавкаНалога", ParseTax),
	}

	values := xmltree.ObjAll(d, "ЗначенияСвойств/ЗначенияСвойства", ParsePropertyValue)
	for _, v := range values {
		if !v.IsEmpty() {
			p.PropertyValues = append(p.PropertyValues, v)
		}
	}

	p.Requisites = parseRequisites(d)

	for _, ref := range xmltree.FindAll(d, "Картинка", parseFileRefText) {
		if ref.IsImage() {
			p.Images = append(p.Images, ref)
		} else {
			p.Files = append(p.Files, ref)
		}
	}

	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseRequisites(d *xmltree.Decoder) map[string]string {
	out := map[string]string{}
	for _, el := range xmltree.Elements(d, "ЗначенияРеквизитов/ЗначениеРеквизита") {
		rd := xmltree.NewDecoder(el)
		name := xmltree.Find(rd, "Наименование", xmltree.String)
		value := xmltree.FindOr(rd, "Значение", xmltree.String, "")
		if err := rd.Err(); err != nil {
			continue
		}
		out[name] = value
	}
	return out
}

func parseFileRefText(s string) (*FileRef, error) {
	return NewFileRef(s)
}

// PropertyValue assigns one or more values of a classifier property to a
// product.
type PropertyValue struct {
	ID     string
	Values []string
}

// IsEmpty reports whether the entry carries no values.
func (v *PropertyValue) IsEmpty() bool {
	return len(v.Values) == 0
}

// Value returns the first value, or the empty string for empty entries.
func (v *PropertyValue) Value() string {
	if v.IsEmpty() {
		return ""
	}
	return v.Values[0]
}

// ParsePropertyValue decodes a ЗначенияСвойства element.
func ParsePropertyValue(el *xmltree.Element) (*PropertyValue, error) {
	d := xmltree.NewDecoder(el)
	v := &PropertyValue{
		ID:     xmltree.Find(d, "Ид", xmltree.String),
		Values: xmltree.FindAll(d, "Значение", xmltree.String),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// Tax is an applicable tax rate.
type Tax struct {
	Name string
	Rate float64
}

// ParseTax decodes a СтавкаНалога element.
func ParseTax(el *xmltree.Element) (*Tax, error) {
	d := xmltree.NewDecoder(el)
	t := &Tax{
		Name: xmltree.Find(d, "Наименование", xmltree.String),
		Rate: xmltree.Find(d, "Ставка", xmltree.Float),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
