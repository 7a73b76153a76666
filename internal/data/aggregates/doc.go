// Package aggregates holds the write plumbing shared by the element
// repositories: the transaction runner, the concurrency stamp guard, store
// error mapping and the observability hooks every operation reports to.
package aggregates
