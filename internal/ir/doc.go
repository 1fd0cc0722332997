// Package ir provides the value model and error kinds shared by every
// shorthand compiler package.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps it the foundational layer with no circular dependencies.
//
// Contents:
//   - IRValue, the sealed set of values a parameter slot can hold
//   - MarshalCanonical, deterministic JSON used for JSON-object parameters
//   - StatementFingerprint and ParamsHash, domain-separated SHA-256 identities
//   - SyntaxError and ValueError, the two failure kinds of the compilers
package ir
