// Package domain models CDN point-of-presence (POP) status reporting.
//
// # Data Sources
//
// A status report combines three inputs, all fetched fresh for every request:
//
//	catalog    the set of known POPs (code, name, group, coordinates, shield)
//	live feed  POP code -> human-readable status scraped from a monitoring page
//	overrides  administrator-controlled POP code (or "*") -> status index
//
// # Status Catalog
//
// Overrides reference the six canonical status strings by zero-based index:
//
//	0 Operational
//	1 Degraded Performance
//	2 Partial Outage
//	3 Major Outage
//	4 Maintenance
//	5 Not Available
//
// # Resolution Order
//
// For each POP, [ResolveStatus] applies the first matching rule:
//
//	1. wildcard "*" with a valid index   -> that status, for every POP
//	2. wildcard "*" with an invalid index -> skip to rule 4 (per-POP overrides ignored)
//	3. per-POP override                   -> that status, or "Not Available" if out of range
//	4. live feed entry                    -> the scraped string, verbatim
//	5. otherwise                          -> "Not Available"
//
// # Override Directives
//
// Overrides are edited with ordered (key, value) pairs taken from a query
// string, e.g. "?AMS=3&LHR=-&*=-". The value "-" deletes; "*=-" clears the
// whole map. See [ParseDirectives] and [ApplyDirectives].
package domain
