package elements

import (
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

func notFound(op string, f domain.Filter) error {
	switch {
	case f.ID != nil:
		return domainagg.NotFound(op, *f.ID)
	case f.Name != nil:
		return domainagg.NewError(domainagg.CodeNotFound, op, "element not found with name: "+*f.Name, nil)
	default:
		return domainagg.NewError(domainagg.CodeNotFound, op, "no element matches the query", nil)
	}
}
