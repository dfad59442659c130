package exchange

import (
	"context"

	"github.com/sergey-gru/go-cml/pkg/cml"
)

// Delegate receives the business payload of an exchange. The handler
// parses and sequences; the delegate decides what an imported catalogue
// or an exported order means for the site.
//
// Import callbacks are invoked once per section present in the uploaded
// message, in schema order: classifier, catalogue, offers pack, then
// each document. Returning an error aborts the session and surfaces a
// generic failure to the client.
type Delegate interface {
	ImportClassifier(ctx context.Context, c *cml.Classifier) error
	ImportCatalogue(ctx context.Context, c *cml.Catalogue) error
	ImportOffers(ctx context.Context, p *cml.OffersPack) error
	ImportDocument(ctx context.Context, d *cml.Document) error

	// ExportOrders returns the documents to ship on a sale query,
	// typically orders accumulated since the previous exchange.
	ExportOrders(ctx context.Context) ([]*cml.Document, error)

	// Report returns the human-readable session summary recorded on every
	// cleanly finished step. An error here degrades the report text only;
	// it never fails the exchange.
	Report(ctx context.Context) (string, error)
}
