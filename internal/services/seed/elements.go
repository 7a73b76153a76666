package seed

import (
	"context"

	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/audit"
	"github.com/yungbote/elementstore/internal/platform/guid"
)

type fixture struct {
	name        string
	description string
	subs        [][2]string
}

var elementFixtures = []fixture{
	{"DataElement1", "The first Data Element", [][2]string{
		{"DE1SE1", "Test Data 1"},
		{"DE1SE2", "Test Data 2"},
	}},
	{"DataElement2", "The second Data Element", [][2]string{
		{"DE2SE1", "Test Data 1"},
	}},
	{"DataElement3", "The third Data Element", [][2]string{
		{"DE3SE1", "Test Data 1"},
		{"DE3SE2", "Test Data 2"},
		{"DE3SE3", "Test Data 3"},
		{"DE3SE4", "Test Data 4"},
	}},
	{"DataElement4", "The fourth Data Element", nil},
}

// ElementContributor inserts the sample elements into an empty collection.
type ElementContributor struct {
	Repo    domain.Repository
	Gen     guid.Generator
	Stamper audit.Stamper
}

func (ElementContributor) Name() string { return "elements" }

func (c ElementContributor) Seed(ctx context.Context) (int, error) {
	count, err := c.Repo.GetCount(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	els, err := c.build(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.Repo.InsertMany(ctx, els); err != nil {
		return 0, err
	}
	return len(els), nil
}

func (c ElementContributor) build(ctx context.Context) ([]*domain.Element, error) {
	gen := c.Gen
	if gen == nil {
		gen = guid.TimeOrdered()
	}
	out := make([]*domain.Element, 0, len(elementFixtures))
	for _, f := range elementFixtures {
		el, err := domain.New(gen, f.name, f.description)
		if err != nil {
			return nil, err
		}
		for _, s := range f.subs {
			if err := el.AddSubElement(domain.NewSubElement(s[0], s[1])); err != nil {
				return nil, err
			}
		}
		c.Stamper.Created(ctx, el)
		out = append(out, el)
	}
	return out, nil
}
