// Package elements holds the application-level operations on the Element
// aggregate that span more than a single repository call.
package elements

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/audit"
	"github.com/yungbote/elementstore/internal/platform/guid"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

type Manager interface {
	Create(ctx context.Context, name, description string, subs []domain.SubElement) (*domain.Element, error)
	// Update renames and redescribes the element. A non-nil subs replaces the
	// children (duplicates collapse); nil leaves them untouched.
	Update(ctx context.Context, id uuid.UUID, name, description string, subs []domain.SubElement) (*domain.Element, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type manager struct {
	repo    domain.Repository
	gen     guid.Generator
	stamper audit.Stamper
	log     *logger.Logger
}

func NewManager(repo domain.Repository, gen guid.Generator, stamper audit.Stamper, baseLog *logger.Logger) Manager {
	if gen == nil {
		gen = guid.TimeOrdered()
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &manager{
		repo:    repo,
		gen:     gen,
		stamper: stamper,
		log:     baseLog.With("service", "ElementManager"),
	}
}

func (m *manager) Create(ctx context.Context, name, description string, subs []domain.SubElement) (*domain.Element, error) {
	el, err := domain.New(m.gen, name, description)
	if err != nil {
		return nil, err
	}
	if err := addAll(el, subs); err != nil {
		return nil, err
	}
	m.stamper.Created(ctx, el)
	stored, err := m.repo.Insert(ctx, el)
	if err != nil {
		return nil, err
	}
	m.log.Info("element created", "id", stored.ID(), "sub_elements", stored.Len())
	return stored, nil
}

func (m *manager) Update(ctx context.Context, id uuid.UUID, name, description string, subs []domain.SubElement) (*domain.Element, error) {
	q, err := m.repo.WithDetails(ctx)
	if err != nil {
		return nil, err
	}
	el, err := q.ByID(id).First(ctx)
	if err != nil {
		return nil, err
	}
	if err := el.Rename(name); err != nil {
		return nil, err
	}
	if err := el.Describe(description); err != nil {
		return nil, err
	}
	if subs != nil {
		el.RemoveAllSubElements()
		if err := addAll(el, subs); err != nil {
			return nil, err
		}
	}
	updated, err := m.repo.Update(ctx, el)
	if err != nil {
		return nil, err
	}
	m.log.Info("element updated", "id", id, "sub_elements", updated.Len())
	return updated, nil
}

func (m *manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.log.Info("element deleted", "id", id)
	return nil
}

func addAll(el *domain.Element, subs []domain.SubElement) error {
	for _, s := range subs {
		if err := el.AddSubElement(s); err != nil {
			return err
		}
	}
	return nil
}
