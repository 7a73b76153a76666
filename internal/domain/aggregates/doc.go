// Package aggregates defines the error taxonomy and contract metadata shared by
// every aggregate and repository implementation.
//
// These types intentionally avoid persistence implementation details; adapters
// translate store failures into them in internal/data/aggregates.
package aggregates
