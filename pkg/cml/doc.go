// Package cml implements the CommerceML 2 document model transported by
// the 1C "exchange with website" protocol.
//
// The root unit is the [Packet] (КоммерческаяИнформация): one complete XML
// message carrying an optional [Classifier], an optional [Catalogue], an
// optional [OffersPack] and an ordered sequence of business [Document]s.
// Exactly the sections present in the source XML are populated; an absent
// optional section stays nil so a consumer can tell "no catalogue in this
// message" from "empty catalogue".
//
// Element and attribute names are kept verbatim in Russian: they are the
// wire contract, not prose.
//
// Parsing is total and recursive, built on the pkg/xmltree decoder. Two
// filters run after the generic mechanism:
//
//   - offer prices equal to zero are dropped (1C exports zero prices for
//     price types that were never set),
//   - product property values with no values are dropped.
//
// Only schema version 2.08 is fully trusted. Other versions parse on a
// best-effort basis; callers should check [Packet.Version] and warn.
package cml
