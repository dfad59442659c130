package cml

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

// DocumentOperation enumerates the business operations a document may
// represent (ХозОперация).
type DocumentOperation string

const (
	OperationOther                  DocumentOperation = "Прочие"
	OperationInvoiceFactura         DocumentOperation = "Счет-фактура"
	OperationInvoicePayment         DocumentOperation = "Счет на оплату"
	OperationOrderGoods             DocumentOperation = "Заказ товара"
	OperationPaymentCash            DocumentOperation = "Выплата наличных денег"
	OperationPaymentNonCash         DocumentOperation = "Выплата безналичных денег"
	OperationRefundCash             DocumentOperation = "Возврат наличных денег"
	OperationRefundNonCash          DocumentOperation = "Возврат безналичных денег"
	OperationReportSalesConsignment DocumentOperation = "Отчет о продажах комиссионного товара"
	OperationReturnConsignmentGoods DocumentOperation = "Возврат комиссионного товара"
	OperationReturnGoods            DocumentOperation = "Возврат товара"
	OperationRevaluationGoods       DocumentOperation = "Переоценка товаров"
	OperationShipmentGoods          DocumentOperation = "Отпуск товара"
	OperationTransferConsignment    DocumentOperation = "Передача товара на комиссию"
)

var documentOperations = map[DocumentOperation]bool{
	OperationOther: true, OperationInvoiceFactura: true, OperationInvoicePayment: true,
	OperationOrderGoods: true, OperationPaymentCash: true, OperationPaymentNonCash: true,
	OperationRefundCash: true, OperationRefundNonCash: true, OperationReportSalesConsignment: true,
	OperationReturnConsignmentGoods: true, OperationReturnGoods: true, OperationRevaluationGoods: true,
	OperationShipmentGoods: true, OperationTransferConsignment: true,
}

func parseDocumentOperation(s string) (DocumentOperation, error) {
	op := DocumentOperation(s)
	if !documentOperations[op] {
		return "", fmt.Errorf("unknown document operation %q", s)
	}
	return op, nil
}

// CounterpartyRole enumerates document party roles (Роль).
type CounterpartyRole string

const (
	RoleSeller          CounterpartyRole = "Продавец"
	RoleBuyer           CounterpartyRole = "Покупатель"
	RolePayer           CounterpartyRole = "Плательщик"
	RolePrincipal       CounterpartyRole = "Комитент"
	RoleCommissionAgent CounterpartyRole = "Комиссионер"
)

func parseCounterpartyRole(s string) (CounterpartyRole, error) {
	switch r := CounterpartyRole(s); r {
	case RoleSeller, RoleBuyer, RolePayer, RolePrincipal, RoleCommissionAgent:
		return r, nil
	default:
		return "", fmt.Errorf("unknown counterparty role %q", s)
	}
}

// Document is one business transaction record: an order, a shipment, a
// payment and so on, with its counterparties and line items.
type Document struct {
	ID     string
	Number string
	Date   time.Time
	// Time holds the clock portion on the zero date, or nil when the
	// document carries a date only.
	Time *time.Time

	Operation DocumentOperation
	Role      CounterpartyRole

	Currency string
	// Rate relates Currency to the site's base currency.
	Rate    float64
	Sum     float64
	Comment string

	Counterparties []*Counterparty
	Items          []*ProductRef
}

// ParseDocument decodes a Документ element.
func ParseDocument(el *xmltree.Element) (*Document, error) {
	d := xmltree.NewDecoder(el)
	doc := &Document{
		ID:             xmltree.Find(d, "Ид", xmltree.String),
		Number:         xmltree.Find(d, "Номер", xmltree.String),
		Date:           xmltree.Find(d, "Дата", parseDate),
		Operation:      xmltree.Find(d, "ХозОперация", parseDocumentOperation),
		Role:           xmltree.Find(d, "Роль", parseCounterpartyRole),
		Counterparties: xmltree.ObjAll(d, "Контрагенты/Контрагент", ParseCounterparty),
		Items:          xmltree.ObjAll(d, "Товары/Товар", ParseProductRef),
		Currency:       xmltree.Find(d, "Валюта", xmltree.String),
		Rate:           xmltree.Find(d, "Курс", xmltree.Float),
		Sum:            xmltree.Find(d, "Сумма", xmltree.Float),
		Comment:        xmltree.FindOr(d, "Комментарий", xmltree.String, ""),
	}
	if clock := xmltree.FindOr(d, "Время", parseClock, time.Time{}); !clock.IsZero() {
		doc.Time = &clock
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Compose renders the document as a Документ element.
func (doc *Document) Compose() *xmltree.Element {
	el := xmltree.New("Документ")
	el.CreateText("Ид", doc.ID)
	el.CreateText("Номер", doc.Number)
	el.CreateText("Дата", doc.Date.Format(dateLayout))
	if doc.Time != nil {
		el.CreateText("Время", doc.Time.Format(timeLayout))
	}
	el.CreateText("ХозОперация", string(doc.Operation))
	el.CreateText("Роль", string(doc.Role))

	el.CreateText("Валюта", doc.Currency)
	el.CreateText("Курс", formatFloat(doc.Rate))
	el.CreateText("Сумма", formatFloat(doc.Sum))
	el.CreateText("Комментарий", doc.Comment)

	parties := el.CreateChild("Контрагенты")
	for _, c := range doc.Counterparties {
		parties.Append(c.Compose())
	}

	items := el.CreateChild("Товары")
	for _, ref := range doc.Items {
		items.Append(ref.Compose())
	}
	return el
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Counterparty is one party of a document.
type Counterparty struct {
	ID       string
	Role     CounterpartyRole
	FullName string
	Name     string
	LastName string
	Address  *Address
}

// ParseCounterparty decodes a Контрагент element.
func ParseCounterparty(el *xmltree.Element) (*Counterparty, error) {
	d := xmltree.NewDecoder(el)
	c := &Counterparty{
		ID:       xmltree.Find(d, "Ид", xmltree.String),
		Role:     xmltree.Find(d, "Роль", parseCounterpartyRole),
		FullName: xmltree.Find(d, "ПолноеНаименование", xmltree.String),
		Name:     xmltree.FindOr(d, "Имя", xmltree.String, ""),
		LastName: xmltree.FindOr(d, "Фамилия", xmltree.String, ""),
		Address:  xmltree.ObjOpt(d, "Адрес", ParseAddress),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Compose renders the counterparty as a Контрагент element.
func (c *Counterparty) Compose() *xmltree.Element {
	el := xmltree.New("Контрагент")
	el.CreateText("Ид", c.ID)
	el.CreateText("Роль", string(c.Role))
	el.CreateText("ПолноеНаименование", c.FullName)
	if c.Name != "" {
		el.CreateText("Имя", c.Name)
	}
	if c.LastName != "" {
		el.CreateText("Фамилия", c.LastName)
	}
	if c.Address != nil {
		el.Append(c.Address.Compose())
	}
	return el
}

// AddressFieldKind enumerates the structured address field types.
type AddressFieldKind string

const (
	AddressPostalCode AddressFieldKind = "Почтовый индекс"
	AddressCountry    AddressFieldKind = "Страна"
	AddressRegion     AddressFieldKind = "Регион"
	AddressDistrict   AddressFieldKind = "Район"
	AddressVillage    AddressFieldKind = "Населенный пункт"
	AddressTown       AddressFieldKind = "Город"
	AddressStreet     AddressFieldKind = "Улица"
	AddressHouse      AddressFieldKind = "Дом"
	AddressBuilding   AddressFieldKind = "Корпус"
	AddressApartment  AddressFieldKind = "Квартира"
)

var addressFieldKinds = map[AddressFieldKind]bool{
	AddressPostalCode: true, AddressCountry: true, AddressRegion: true,
	AddressDistrict: true, AddressVillage: true, AddressTown: true,
	AddressStreet: true, AddressHouse: true, AddressBuilding: true,
	AddressApartment: true,
}

func parseAddressFieldKind(s string) (AddressFieldKind, error) {
	k := AddressFieldKind(s)
	if !addressFieldKinds[k] {
		return "", fmt.Errorf("unknown address field %q", s)
	}
	return k, nil
}

// AddressField is one structured component of an address.
type AddressField struct {
	Kind  AddressFieldKind
	Value string
}

// Address is a counterparty address: a display representation plus
// structured fields in document order.
type Address struct {
	Content string
	Comment string
	Fields  []AddressField
}

// Field returns the value of the first field of the given kind.
func (a *Address) Field(kind AddressFieldKind) string {
	for _, f := range a.Fields {
		if f.Kind == kind {
			return f.Value
		}
	}
	return ""
}

// ParseAddress decodes an Адрес element.
func ParseAddress(el *xmltree.Element) (*Address, error) {
	d := xmltree.NewDecoder(el)
	a := &Address{
		Content: xmltree.Find(d, "Представление", xmltree.String),
		Comment: xmltree.FindOr(d, "Комментарий", xmltree.String, ""),
		Fields:  xmltree.ObjAll(d, "АдресноеПоле", parseAddressField),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func parseAddressField(el *xmltree.Element) (AddressField, error) {
	d := xmltree.NewDecoder(el)
	f := AddressField{
		Kind:  xmltree.Find(d, "Тип", parseAddressFieldKind),
		Value: xmltree.Find(d, "Значение", xmltree.String),
	}
	return f, d.Err()
}

// Compose renders the address as an Адрес element.
func (a *Address) Compose() *xmltree.Element {
	el := xmltree.New("Адрес")
	el.CreateText("Представление", a.Content)
	if a.Comment != "" {
		el.CreateText("Комментарий", a.Comment)
	}
	for _, f := range a.Fields {
		fe := el.CreateChild("АдресноеПоле")
		fe.CreateText("Тип", string(f.Kind))
		fe.CreateText("Значение", f.Value)
	}
	return el
}

// ProductRef is a document line item referencing a catalogue product.
type ProductRef struct {
	ProductID string
	// Name is the optional display name; an empty name is omitted on
	// compose.
	Name     string
	Unit     *Unit
	Price    float64
	Quantity float64
	Sum      float64
}

// ParseProductRef decodes a line-item Товар element.
func ParseProductRef(el *xmltree.Element) (*ProductRef, error) {
	d := xmltree.NewDecoder(el)
	ref := &ProductRef{
		ProductID: xmltree.Find(d, "Ид", xmltree.String),
		Name:      xmltree.FindOr(d, "Наименование", xmltree.String, ""),
		Unit:      xmltree.Obj(d, "БазоваяЕдиница", ParseUnitRef),
		Price:     xmltree.FindOr(d, "ЦенаЗаЕдиницу", xmltree.Float, 0),
		Quantity:  xmltree.FindOr(d, "Количество", xmltree.Float, 0),
		Sum:       xmltree.FindOr(d, "Сумма", xmltree.Float, 0),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return ref, nil
}

// Compose renders the line item as a Товар element.
func (ref *ProductRef) Compose() *xmltree.Element {
	el := xmltree.New("Товар")
	el.CreateText("Ид", ref.ProductID)
	if ref.Name != "" {
		el.CreateText("Наименование", ref.Name)
	}
	el.Append(ref.Unit.ComposeRef("БазоваяЕдиница"))
	el.CreateText("ЦенаЗаЕдиницу", formatFloat(ref.Price))
	el.CreateText("Количество", formatFloat(ref.Quantity))
	el.CreateText("Сумма", formatFloat(ref.Sum))
	return el
}
