package cml

import (
	"time"

	"github.com/sergey-gru/go-cml/pkg/xmltree"
)

// Packet is one complete КоммерческаяИнформация message: the unit a single
// import or export request transports.
type Packet struct {
	// Version is the schema version the producer declared. Compare with
	// SchemaVersion; other versions parse best effort.
	Version   string
	CreatedAt time.Time

	// Optional sections. A nil section was absent from the message.
	Classifier *Classifier
	Catalogue  *Catalogue
	Offers     *OffersPack

	// Documents keeps the order the producer emitted.
	Documents []*Document
}

// NewPacket returns an empty packet stamped with the supported schema
// version, ready for composing an export.
func NewPacket() *Packet {
	return &Packet{
		Version:   SchemaVersion,
		CreatedAt: time.Now(),
	}
}

// ParsePacket parses a serialized CommerceML message.
func ParsePacket(data []byte) (*Packet, error) {
	el, err := xmltree.Parse(data)
	if err != nil {
		return nil, err
	}
	return ParsePacketElement(el)
}

// ParsePacketElement decodes a КоммерческаяИнформация element.
func ParsePacketElement(el *xmltree.Element) (*Packet, error) {
	d := xmltree.NewDecoder(el)
	p := &Packet{
		Version:    xmltree.Attr(d, "ВерсияСхемы", xmltree.String),
		CreatedAt:  xmltree.Attr(d, "ДатаФормирования", parseDateTime),
		Classifier: xmltree.ObjOpt(d, "Классификатор", ParseClassifier),
		Catalogue:  xmltree.ObjOpt(d, "Каталог", ParseCatalogue),
		Offers:     xmltree.ObjOpt(d, "ПакетПредложений", ParseOffersPack),
		Documents:  xmltree.ObjAll(d, "Документ", ParseDocument),
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Compose serializes the packet as a UTF-8 XML document. Only the export
// surface is rendered: the envelope attributes and the Документ subtree.
// Classifier, catalogue and offers sections are import-only and never
// emitted.
func (p *Packet) Compose() ([]byte, error) {
	return p.ComposeElement().WriteXML()
}

// ComposeElement renders the packet as a КоммерческаяИнформация element.
func (p *Packet) ComposeElement() *xmltree.Element {
	el := xmltree.New("КоммерческаяИнформация")
	el.SetAttr("ВерсияСхемы", SchemaVersion)
	el.SetAttr("ДатаФормирования", formatDateTime(p.CreatedAt))
	for _, doc := range p.Documents {
		el.Append(doc.Compose())
	}
	return el
}
