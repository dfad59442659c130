// Package xmltree wraps beevik/etree with the lookup semantics the
// CommerceML document model is built on.
//
// Every entity parser in pkg/cml is a flat, declarative list of field
// lookups. The helpers here carry that declarative style:
//
//   - [Element] wraps a parsed etree element and exposes path-based
//     single/multi lookup, attribute access and compose-side builders.
//   - [Decoder] holds the element being decoded plus the first error any
//     lookup produced, so a parser can chain a dozen lookups and check the
//     error once.
//   - Generic package functions ([Find], [FindOr], [Attr], [Obj], [ObjAll],
//     ...) apply a text or element converter with required/optional/default
//     policy.
//
// Lookup failures are always diagnosable without a debugger: both
// [NotFoundError] and [ConvertError] carry the element path computed from
// the document root, because CommerceML documents are deep and producers
// vary in which optional sections they include.
package xmltree
