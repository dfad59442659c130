package cml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

const importXML = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.08" ДатаФормирования="2026-08-30T12:00:00">
	<Классификатор>
		<Ид>cls-1</Ид>
		<Наименование>Классификатор (Каталог товаров)</Наименование>
		<Владелец>
			<Ид>org-1</Ид>
			<Наименование>ООО Ромашка</Наименование>
		</Владелец>
		<Группы>
			<Группа>
				<Ид>grp-1</Ид>
				<Наименование>Электроника</Наименование>
				<Группы>
					<Группа>
						<Ид>grp-1-1</Ид>
						<Наименование>Ноутбуки</Наименование>
					</Группа>
				</Группы>
			</Группа>
		</Группы>
		<Свойства>
			<Свойство>
				<Ид>prop-1</Ид>
				<Наименование>Цвет</Наименование>
				<ТипЗначений>Справочник</ТипЗначений>
				<ДляТоваров>true</ДляТоваров>
				<ВариантыЗначений>
					<Справочник>
						<ИдЗначения>v-1</ИдЗначения>
						<Значение>Красный</Значение>
					</Справочник>
				</ВариантыЗначений>
			</Свойство>
		</Свойства>
		<Категории>
			<Категория>
				<Ид>c-1</Ид>
				<Наименование>Основная</Наименование>
				<Свойства>
					<Ид>prop-1</Ид>
					<Ид>prop-missing</Ид>
				</Свойства>
			</Категория>
		</Категории>
		<ЕдиницыИзмерения>
			<ЕдиницаИзмерения>
				<Код>796</Код>
				<НаименованиеПолное>Штука</НаименованиеПолное>
				<МеждународноеСокращение>PCE</МеждународноеСокращение>
			</ЕдиницаИзмерения>
		</ЕдиницыИзмерения>
	</Классификатор>
	<Каталог СодержитТолькоИзменения="true">
		<Ид>cat-1</Ид>
		<ИдКлассификатора>cls-1</ИдКлассификатора>
		<Наименование>Каталог товаров</Наименование>
		<Владелец>
			<Ид>org-1</Ид>
			<Наименование>ООО Ромашка</Наименование>
		</Владелец>
		<Товары>
			<Товар>
				<Ид>prod-1</Ид>
				<Артикул>NB-001</Артикул>
				<Код>00001</Код>
				<Наименование>Ноутбук</Наименование>
				<БазоваяЕдиница Код="796" НаименованиеПолное="Штука" МеждународноеСокращение="PCE"/>
				<Группы>
					<Ид>grp-1-1</Ид>
				</Группы>
				<Категория>c-1</Категория>
				<Описание>Лёгкий ноутбук</Описание>
				<Картинка>import_files/nb.jpg</Картинка>
				<Картинка>import_files/manual.pdf</Картинка>
				<ЗначенияСвойств>
					<ЗначенияСвойства>
						<Ид>prop-1</Ид>
						<Значение>v-1</Значение>
					</ЗначенияСвойства>
					<ЗначенияСвойства>
						<Ид>prop-2</Ид>
						<Значение></Значение>
					</ЗначенияСвойства>
				</ЗначенияСвойств>
				<ЗначенияРеквизитов>
					<ЗначениеРеквизита>
						<Наименование>Вес</Наименование>
						<Значение>1.2</Значение>
					</ЗначениеРеквизита>
				</ЗначенияРеквизитов>
				<СтавкиНалогов>
					<СтавкаНалога>
						<Наименование>НДС</Наименование>
						<Ставка>20</Ставка>
					</СтавкаНалога>
				</СтавкиНалогов>
			</Товар>
		</Товары>
	</Каталог>
	<ПакетПредложений>
		<Ид>pack-1</Ид>
		<Наименование>Пакет предложений</Наименование>
		<ИдКаталога>cat-1</ИдКаталога>
		<ИдКлассификатора>cls-1</ИдКлассификатора>
		<Владелец>
			<Ид>org-1</Ид>
			<Наименование>ООО Ромашка</Наименование>
		</Владелец>
		<ТипыЦен>
			<ТипЦены>
				<Ид>price-retail</Ид>
				<Наименование>Розничная</Наименование>
				<Валюта>руб</Валюта>
				<Налог>
					<Наименование>НДС</Наименование>
					<УчтеноВСумме>true</УчтеноВСумме>
				</Налог>
			</ТипЦены>
		</ТипыЦен>
		<Склады>
			<Склад>
				<Ид>wh-1</Ид>
				<Наименование>Основной склад</Наименование>
			</Склад>
		</Склады>
		<Предложения>
			<Предложение>
				<Ид>prod-1</Ид>
				<Наименование>Ноутбук</Наименование>
				<Артикул>NB-001</Артикул>
				<БазоваяЕдиница Код="796" НаименованиеПолное="Штука" МеждународноеСокращение="PCE"/>
				<Количество>5</Количество>
				<Склад ИдСклада="wh-1" КоличествоНаСкладе="5"/>
				<Цены>
					<Цена>
						<Представление>65000 руб за шт</Представление>
						<ИдТипаЦены>price-retail</ИдТипаЦены>
						<ЦенаЗаЕдиницу>65000</ЦенаЗаЕдиницу>
						<Валюта>руб</Валюта>
						<Единица>шт</Единица>
						<Коэффициент>1</Коэффициент>
					</Цена>
					<Цена>
						<Представление>0 руб за шт</Представление>
						<ИдТипаЦены>price-wholesale</ИдТипаЦены>
						<ЦенаЗаЕдиницу>0</ЦенаЗаЕдиницу>
						<Валюта>руб</Валюта>
						<Единица>шт</Единица>
						<Коэффициент>1</Коэффициент>
					</Цена>
				</Цены>
			</Предложение>
		</Предложения>
	</ПакетПредложений>
	<Документ>
		<Ид>order-1</Ид>
		<Номер>42</Номер>
		<Дата>2026-08-29</Дата>
		<Время>14:30:00</Время>
		<ХозОперация>Заказ товара</ХозОперация>
		<Роль>Продавец</Роль>
		<Валюта>руб</Валюта>
		<Курс>1</Курс>
		<Сумма>65000</Сумма>
		<Контрагенты>
			<Контрагент>
				<Ид>buyer-1</Ид>
				<Роль>Покупатель</Роль>
				<ПолноеНаименование>Иванов Иван Иванович</ПолноеНаименование>
				<Имя>Иван</Имя>
				<Фамилия>Иванов</Фамилия>
				<Адрес>
					<Представление>101000, Москва, ул. Мясницкая, д. 1</Представление>
					<АдресноеПоле>
						<Тип>Почтовый индекс</Тип>
						<Значение>101000</Значение>
					</АдресноеПоле>
					<АдресноеПоле>
						<Тип>Город</Тип>
						<Значение>Москва</Значение>
					</АдресноеПоле>
				</Адрес>
			</Контрагент>
		</Контрагенты>
		<Товары>
			<Товар>
				<Ид>prod-1</Ид>
				<Наименование>Ноутбук</Наименование>
				<БазоваяЕдиница Код="796" НаименованиеПолное="Штука" МеждународноеСокращение="PCE"/>
				<ЦенаЗаЕдиницу>65000</ЦенаЗаЕдиницу>
				<Количество>1</Количество>
				<Сумма>65000</Сумма>
			</Товар>
		</Товары>
		<Комментарий>Срочный заказ</Комментарий>
	</Документ>
</КоммерческаяИнформация>`

func TestParsePacketFull(t *testing.T) {
	p, err := ParsePacket([]byte(importXML))
	require.NoError(t, err)

	assert.Equal(t, "2.08", p.Version)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), p.CreatedAt)

	// Classifier
	cls := p.Classifier
	require.NotNil(t, cls)
	assert.Equal(t, "cls-1", cls.ID)
	require.Len(t, cls.Groups, 1)
	require.Len(t, cls.Groups[0].Groups, 1)
	assert.Equal(t, "grp-1-1", cls.Groups[0].Groups[0].ID)

	require.Len(t, cls.Properties, 1)
	prop := cls.Properties[0]
	assert.Equal(t, PropertyList, prop.Type)
	assert.True(t, prop.ForProducts)
	assert.Equal(t, []string{"Красный"}, prop.Variants)
	require.Len(t, prop.VariantList, 1)
	assert.Equal(t, "v-1", prop.VariantList[0].ID)

	// Dangling category property ids survive parsing.
	require.Len(t, cls.Categories, 1)
	assert.Equal(t, []string{"prop-1", "prop-missing"}, cls.Categories[0].PropertyIDs)

	require.Len(t, cls.Units, 1)
	assert.Equal(t, 796, cls.Units[0].Code)

	// Catalogue
	cat := p.Catalogue
	require.NotNil(t, cat)
	assert.True(t, cat.ContainsChangesOnly)
	require.Len(t, cat.Products, 1)
	prod := cat.Products[0]
	assert.Equal(t, ProductChanged, prod.Status)
	assert.Equal(t, []string{"grp-1-1"}, prod.GroupIDs)
	assert.Equal(t, "c-1", prod.CategoryID)
	assert.Equal(t, map[string]string{"Вес": "1.2"}, prod.Requisites)

	// The valueless property entry is dropped.
	require.Len(t, prod.PropertyValues, 1)
	assert.Equal(t, "prop-1", prod.PropertyValues[0].ID)
	assert.Equal(t, "v-1", prod.PropertyValues[0].Value())

	// Картинка entries split by extension.
	require.Len(t, prod.Images, 1)
	assert.Equal(t, "import_files/nb.jpg", prod.Images[0].Path)
	require.Len(t, prod.Files, 1)
	assert.Equal(t, "import_files/manual.pdf", prod.Files[0].Path)

	require.Len(t, prod.Taxes, 1)
	assert.Equal(t, 20.0, prod.Taxes[0].Rate)

	// Offers
	offers := p.Offers
	require.NotNil(t, offers)
	require.Len(t, offers.PriceTypes, 1)
	assert.True(t, offers.PriceTypes[0].TaxInSum)
	require.Len(t, offers.Stocks, 1)
	require.Len(t, offers.Offers, 1)
	off := offers.Offers[0]
	assert.Equal(t, 5, off.Quantity)
	require.Len(t, off.Stocks, 1)
	assert.Equal(t, 5.0, off.Stocks[0].Count)

	// The zero-priced entry is dropped.
	require.Len(t, off.Prices, 1)
	assert.Equal(t, "price-retail", off.Prices[0].TypeID)
	assert.Equal(t, 65000.0, off.Prices[0].Value)

	// Documents
	require.Len(t, p.Documents, 1)
	doc := p.Documents[0]
	assert.Equal(t, OperationOrderGoods, doc.Operation)
	assert.Equal(t, RoleSeller, doc.Role)
	require.NotNil(t, doc.Time)
	assert.Equal(t, 14, doc.Time.Hour())
	assert.Equal(t, "Срочный заказ", doc.Comment)

	require.Len(t, doc.Counterparties, 1)
	cp := doc.Counterparties[0]
	assert.Equal(t, RoleBuyer, cp.Role)
	require.NotNil(t, cp.Address)
	assert.Equal(t, "Москва", cp.Address.Field(AddressTown))

	require.Len(t, doc.Items, 1)
	assert.Equal(t, 65000.0, doc.Items[0].Sum)
}

func TestParsePacketMissingVersion(t *testing.T) {
	xml := `<?xml version="1.0"?><КоммерческаяИнформация ДатаФормирования="2026-08-30T12:00:00"/>`
	_, err := ParsePacket([]byte(xml))
	var nf *xmltree.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Path, "ВерсияСхемы")
}

func TestParsePacketErrorNamesPath(t *testing.T) {
	xml := `<?xml version="1.0"?>
<КоммерческаяИнформация ВерсияСхемы="2.08" ДатаФормирования="2026-08-30T12:00:00">
	<Каталог>
		<Ид>cat-1</Ид>
		<ИдКлассификатора>cls-1</ИдКлассификатора>
	</Каталог>
</КоммерческаяИнформация>`
	_, err := ParsePacket([]byte(xml))
	var nf *xmltree.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Path, "Каталог")
	assert.Contains(t, nf.Path, "Наименование")
}

func TestParsePacketUnknownOperation(t *testing.T) {
	xml := `<?xml version="1.0"?>
<КоммерческаяИнформация ВерсияСхемы="2.08" ДатаФормирования="2026-08-30T12:00:00">
	<Документ>
		<Ид>d-1</Ид>
		<Номер>1</Номер>
		<Дата>2026-08-29</Дата>
		<ХозОперация>Неизвестная операция</ХозОперация>
		<Роль>Продавец</Роль>
		<Валюта>руб</Валюта>
		<Курс>1</Курс>
		<Сумма>1</Сумма>
	</Документ>
</КоммерческаяИнформация>`
	_, err := ParsePacket([]byte(xml))
	var ce *xmltree.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Err.Error(), "unknown document operation")
}

func TestComposeRoundTrip(t *testing.T) {
	clock := time.Date(0, 1, 1, 14, 30, 0, 0, time.UTC)
	src := NewPacket()
	src.Documents = []*Document{{
		ID:        "order-7",
		Number:    "7",
		Date:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Time:      &clock,
		Operation: OperationOrderGoods,
		Role:      RoleSeller,
		Currency:  "руб",
		Rate:      1,
		Sum:       300.5,
		Comment:   "тест",
		Counterparties: []*Counterparty{{
			ID:       "buyer-1",
			Role:     RoleBuyer,
			FullName: "Петров Пётр",
			Address: &Address{
				Content: "Москва",
				Fields:  []AddressField{{Kind: AddressTown, Value: "Москва"}},
			},
		}},
		Items: []*ProductRef{{
			ProductID: "prod-7",
			Name:      "Виджет",
			Unit:      DefaultUnit(),
			Price:     300.5,
			Quantity:  1,
			Sum:       300.5,
		}},
	}}

	data, err := src.Compose()
	require.NoError(t, err)

	got, err := ParsePacket(data)
	require.NoError(t, err)

	// Only the envelope and documents are rendered.
	assert.Equal(t, SchemaVersion, got.Version)
	assert.Nil(t, got.Classifier)
	assert.Nil(t, got.Catalogue)
	assert.Nil(t, got.Offers)

	require.Len(t, got.Documents, 1)
	doc := got.Documents[0]
	assert.Equal(t, "order-7", doc.ID)
	require.NotNil(t, doc.Time)
	assert.Equal(t, 14, doc.Time.Hour())
	assert.Equal(t, 30, doc.Time.Minute())
	assert.Equal(t, 300.5, doc.Sum)
	require.Len(t, doc.Counterparties, 1)
	require.NotNil(t, doc.Counterparties[0].Address)
	assert.Equal(t, "Москва", doc.Counterparties[0].Address.Field(AddressTown))
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 796, doc.Items[0].Unit.Code)
	assert.Equal(t, 300.5, doc.Items[0].Price)
}

func TestComposeOmitsEmptyCounterpartyNames(t *testing.T) {
	c := &Counterparty{ID: "c-1", Role: RoleBuyer, FullName: "ООО Ромашка"}
	el := c.Compose()

	data, err := el.WriteXML()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<Имя>")
	assert.NotContains(t, string(data), "<Фамилия>")
	assert.NotContains(t, string(data), "<Адрес>")
}
