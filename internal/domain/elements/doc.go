// Package elements holds the Element aggregate, its owned SubElement values and
// the storage-agnostic repository contract every backend satisfies.
//
// # Aggregate rules
//
// An Element owns an ordered collection of SubElements. Two SubElements are
// equal when their names and values match ignoring case; the collection never
// holds two equal entries. Callers mutate the collection only through
// AddSubElement, RemoveSubElement and RemoveAllSubElements.
//
// # Persistence
//
// Repository is implemented by the relational (GORM) and document (Redis)
// adapters in internal/data/repos/elements. Both must behave identically for
// every operation; SchemaMigrator is the per-backend schema hook.
package elements
