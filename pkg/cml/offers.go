package cml

import (
	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

// OffersPack carries prices and stock levels for products of a catalogue.
type OffersPack struct {
	ID           string
	Name         string
	CatalogueID  string
	ClassifierID string
	Owner        *Partner
	PriceTypes   []*PriceType
	Stocks       []*Stock
	Offers       []*Offer
}

// ParseOffersPack decodes a ПакетПредложений element.
func ParseOffersPack(el *xmltree.Element) (*OffersPack, error) {
	d := xmltree.NewDecoder(el)
	p := &OffersPack{
		ID:           xmltree.Find(d, "Ид", xmltree.String),
		Name:         xmltree.Find(d, "Наименование", xmltree.String),
		CatalogueID:  xmltree.Find(d, "ИдКаталога", xmltree.String),
		ClassifierID: xmltree.Find(d, "ИдКлассификатора", xmltree.String),
		Owner:        xmltree.Obj(d, "Владелец", ParsePartner),
		PriceTypes:   xmltree.ObjAll(d, "ТипыЦен/ТипЦены", ParsePriceType),
		Stocks:       xmltree.ObjAll(d, "Склады/Склад", ParseStock),
		Offers:       xmltree.ObjAll(d, "Предложения/Предложение", ParseOffer),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// PriceType declares one price column of the pack.
type PriceType struct {
	ID       string
	Name     string
	Currency string
	TaxName  string
	TaxInSum bool
}

// ParsePriceType decodes a ТипЦены element.
func ParsePriceType(el *xmltree.Element) (*PriceType, error) {
	d := xmltree.NewDecoder(el)
	t := &PriceType{
		ID:       xmltree.Find(d, "Ид", xmltree.String),
		Name:     xmltree.Find(d, "Наименование", xmltree.String),
		Currency: xmltree.Find(d, "Валюта", xmltree.String),
		TaxName:  xmltree.Find(d, "Налог/Наименование", xmltree.String),
		TaxInSum: xmltree.Find(d, "Налог/УчтеноВСумме", xmltree.Bool),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Stock is a warehouse location offers may report per-location counts for.
type Stock struct {
	ID   string
	Name string
}

// ParseStock decodes a Склад element.
func ParseStock(el *xmltree.Element) (*Stock, error) {
	d := xmltree.NewDecoder(el)
	s := &Stock{
		ID:   xmltree.Find(d, "Ид", xmltree.String),
		Name: xmltree.Find(d, "Наименование", xmltree.String),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Offer is the price and availability record of one product.
type Offer struct {
	ProductID  string
	Name       string
	VendorCode string

	// Prices never contains zero-priced entries; 1C exports zeroes for
	// price types that were never assigned and those are dropped at
	// parse time.
	Prices   []*Price
	Stocks   []*StockCount
	Quantity int
	Unit     *Unit
}

// ParseOffer decodes a Предложение element.
func ParseOffer(el *xmltree.Element) (*Offer, error) {
	d := xmltree.NewDecoder(el)
	o := &Offer{
		ProductID:  xmltree.Find(d, "Ид", xmltree.String),
		Name:       xmltree.Find(d, "Наименование", xmltree.String),
		VendorCode: xmltree.FindOr(d, "Артикул", xmltree.String, ""),
		Stocks:     xmltree.ObjAll(d, "Склад", ParseStockCount),
		Quantity:   xmltree.Find(d, "Количество", xmltree.Int),
		Unit:       xmltree.Obj(d, "БазоваяЕдиница", ParseUnitRef),
	}
	for _, p := range xmltree.ObjAll(d, "Цены/Цена", ParsePrice) {
		if p.Value != 0 {
			o.Prices = append(o.Prices, p)
		}
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

// Price is one price column entry of an offer.
type Price struct {
	Description string
	TypeID      string
	Value       float64
	Currency    string
	UnitName    string
	Ratio       float64
}

// ParsePrice decodes a Цена element.
func ParsePrice(el *xmltree.Element) (*Price, error) {
	d := xmltree.NewDecoder(el)
	p := &Price{
		Description: xmltree.Find(d, "Представление", xmltree.String),
		TypeID:      xmltree.Find(d, "ИдТипаЦены", xmltree.String),
		Value:       xmltree.Find(d, "ЦенаЗаЕдиницу", xmltree.Float),
		Currency:    xmltree.Find(d, "Валюта", xmltree.String),
		UnitName:    xmltree.Find(d, "Единица", xmltree.String),
		Ratio:       xmltree.Find(d, "Коэффициент", xmltree.Float),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// StockCount is a per-warehouse availability figure of an offer.
type StockCount struct {
	StockID string
	Count   float64
}

// ParseStockCount decodes a Склад reference element.
func ParseStockCount(el *xmltree.Element) (*StockCount, error) {
	d := xmltree.NewDecoder(el)
	c := &StockCount{
		StockID: xmltree.Attr(d, "ИдСклада", xmltree.String),
		Count:   xmltree.Attr(d, "КоличествоНаСкладе", xmltree.Float),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
