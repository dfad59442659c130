package xmltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Корень Версия="2.08" Число="42">
	<Имя>Пример</Имя>
	<Пустой></Пустой>
	<Цена>199.5</Цена>
	<Флаг>true</Флаг>
	<Элементы>
		<Значение>один</Значение>
		<Значение></Значение>
		<Значение>три</Значение>
	</Элементы>
	<Вложенный>
		<Ид>id-1</Ид>
	</Вложенный>
</Корень>`

func parseSample(t *testing.T) *Decoder {
	t.Helper()
	el, err := Parse([]byte(sampleXML))
	require.NoError(t, err)
	return NewDecoder(el)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not xml at all"))
	assert.Error(t, err)
}

func TestParseWindows1251(t *testing.T) {
	utf8Doc := `<?xml version="1.0" encoding="windows-1251"?><Тест><Имя>Привет</Имя></Тест>`
	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(utf8Doc))
	require.NoError(t, err)

	el, err := Parse(encoded)
	require.NoError(t, err)

	d := NewDecoder(el)
	assert.Equal(t, "Привет", Find(d, "Имя", String))
	assert.NoError(t, d.Err())
}

func TestParseUnsupportedCharset(t *testing.T) {
	_, err := Parse([]byte(`<?xml version="1.0" encoding="koi8-r"?><Тест/>`))
	assert.Error(t, err)
}

func TestFindRequired(t *testing.T) {
	d := parseSample(t)

	assert.Equal(t, "Пример", Find(d, "Имя", String))
	assert.Equal(t, 199.5, Find(d, "Цена", Float))
	assert.True(t, Find(d, "Флаг", Bool))
	assert.NoError(t, d.Err())
}

func TestFindMissingRecordsNotFound(t *testing.T) {
	d := parseSample(t)

	Find(d, "Нет", String)
	var nf *NotFoundError
	require.ErrorAs(t, d.Err(), &nf)
	assert.Contains(t, nf.Path, "/Корень/Нет")
}

func TestFindEmptyYieldsZeroWithoutConverting(t *testing.T) {
	d := parseSample(t)

	// An Int converter would reject "", but it must never see it.
	assert.Equal(t, 0, Find(d, "Пустой", Int))
	assert.NoError(t, d.Err())
}

func TestFindConvertError(t *testing.T) {
	d := parseSample(t)

	Find(d, "Имя", Int)
	var ce *ConvertError
	require.ErrorAs(t, d.Err(), &ce)
	assert.Contains(t, ce.Path, "/Корень/Имя")
	assert.Equal(t, "Пример", ce.Value)
}

func TestFindOr(t *testing.T) {
	d := parseSample(t)

	assert.Equal(t, "Пример", FindOr(d, "Имя", String, "зн"))
	assert.Equal(t, "зн", FindOr(d, "Нет", String, "зн"))
	assert.Equal(t, 7, FindOr(d, "Пустой", Int, 7))
	assert.NoError(t, d.Err())
}

func TestAttr(t *testing.T) {
	d := parseSample(t)

	assert.Equal(t, "2.08", Attr(d, "Версия", String))
	assert.Equal(t, 42, Attr(d, "Число", Int))
	assert.Equal(t, 5, AttrOr(d, "Нет", Int, 5))
	assert.NoError(t, d.Err())
}

func TestAttrMissing(t *testing.T) {
	d := parseSample(t)

	Attr(d, "Нет", String)
	var nf *NotFoundError
	require.ErrorAs(t, d.Err(), &nf)
	assert.Contains(t, nf.Path, "[@Нет]")
}

func TestFindAllSkipsEmpty(t *testing.T) {
	d := parseSample(t)

	assert.Equal(t, []string{"один", "три"}, FindAll(d, "Элементы/Значение", String))
	assert.NoError(t, d.Err())
}

func TestFindAllConvertErrorAborts(t *testing.T) {
	d := parseSample(t)

	assert.Nil(t, FindAll(d, "Элементы/Значение", Int))
	var ce *ConvertError
	require.ErrorAs(t, d.Err(), &ce)
	assert.Contains(t, ce.Path, "[0]")
}

func TestFindAllReq(t *testing.T) {
	d := parseSample(t)

	FindAllReq(d, "Нет/Значение", String)
	var nf *NotFoundError
	assert.ErrorAs(t, d.Err(), &nf)
}

func TestObjAndObjOpt(t *testing.T) {
	type ref struct{ ID string }
	parse := func(el *Element) (*ref, error) {
		d := NewDecoder(el)
		r := &ref{ID: Find(d, "Ид", String)}
		return r, d.Err()
	}

	d := parseSample(t)
	got := Obj(d, "Вложенный", parse)
	require.NoError(t, d.Err())
	assert.Equal(t, "id-1", got.ID)

	assert.Nil(t, ObjOpt(d, "Нет", parse))
	assert.NoError(t, d.Err())
}

func TestFirstErrorWins(t *testing.T) {
	d := parseSample(t)

	Find(d, "Первый", String)
	first := d.Err()
	require.Error(t, first)
	Find(d, "Второй", String)
	assert.Same(t, first, d.Err())
}

func TestBoolNeverErrors(t *testing.T) {
	v, err := Bool("anything")
	assert.NoError(t, err)
	assert.False(t, v)

	v, err = Bool("true")
	assert.NoError(t, err)
	assert.True(t, v)
}
