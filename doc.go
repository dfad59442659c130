/*
Package gocml implements the 1C CommerceML 2 "exchange with website"
protocol: the data model for КоммерческаяИнформация messages and the
HTTP exchange a 1C installation drives against a site.

# Overview

go-cml lets a Go-powered shop receive catalogues, offers and documents
from 1C:Предприятие and ship accumulated orders back. The library side
is transport-agnostic; the bundled server wires it to HTTP with basic
auth the way 1C expects.

# Package Structure

The module is organized into the following packages:

	github.com/sergey-gru/go-cml/pkg/cml         - CommerceML document model (parse and compose)
	github.com/sergey-gru/go-cml/pkg/exchange    - Exchange protocol: sessions, dispatch, stores
	github.com/sergey-gru/go-cml/pkg/compression - Zipped upload extraction
	github.com/sergey-gru/go-cml/pkg/xmltree     - Decoding layer over etree with path-qualified errors

Server wiring lives under internal/ (config, basic auth, HTTP server,
MongoDB and PostgreSQL session stores) and is assembled by
cmd/cml-server.

# Quick Start

To serve an exchange endpoint:

	import (
	    "github.com/sergey-gru/go-cml/pkg/exchange"
	)

	handler, err := exchange.NewHandler(exchange.Config{
	    UploadRoot: "/var/lib/cml/upload",
	}, exchange.NewMemoryStore(), myDelegate, logger)

	// myDelegate implements exchange.Delegate: it receives parsed
	// classifiers, catalogues, offer packs and documents, and supplies
	// orders for export.

The handler serves the full protocol sequence (checkauth, init, file,
import, query, success) on a single URL driven by the type and mode
query parameters.

# Protocol

The exchange follows the CommerceML 2.08 convention used by standard 1C
configurations. Element and attribute names are Russian by contract
(Классификатор, Каталог, ПакетПредложений, Документ); pkg/cml maps them
to Go types. Files encoded in windows-1251 are transcoded transparently.
*/
package gocml
