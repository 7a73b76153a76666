package elements_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/yungbote/elementstore/internal/data/aggregates/testutil"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/audit"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

// repositoryFactory builds a repository over an empty store.
type repositoryFactory func(s *RepositoryContractSuite, hooks *testutil.HooksRecorder, stamper audit.Stamper) domain.Repository

// RepositoryContractSuite holds the behaviour every backend must share.
type RepositoryContractSuite struct {
	suite.Suite

	factory repositoryFactory
	repo    domain.Repository
	hooks   *testutil.HooksRecorder
	clock   *stepClock
	ctx     context.Context
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func (s *RepositoryContractSuite) SetupTest() {
	s.hooks = &testutil.HooksRecorder{}
	s.clock = &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.ctx = context.Background()
	s.repo = s.factory(s, s.hooks, audit.Stamper{Now: s.clock.Now})
}

func newElement(s *RepositoryContractSuite, name, description string, subs ...domain.SubElement) *domain.Element {
	el, err := domain.NewWithID(uuid.New(), name, description)
	s.Require().NoError(err)
	for _, sub := range subs {
		s.Require().NoError(el.AddSubElement(sub))
	}
	return el
}

func (s *RepositoryContractSuite) fixtures() []*domain.Element {
	return []*domain.Element{
		newElement(s, "DataElement1", "The first Data Element",
			domain.NewSubElement("DE1SE1", "Test Data 1"),
			domain.NewSubElement("DE1SE2", "Test Data 2")),
		newElement(s, "DataElement2", "The second Data Element",
			domain.NewSubElement("DE2SE1", "Test Data 1")),
		newElement(s, "DataElement3", "The third Data Element",
			domain.NewSubElement("DE3SE1", "Test Data 1"),
			domain.NewSubElement("DE3SE2", "Test Data 2"),
			domain.NewSubElement("DE3SE3", "Test Data 3"),
			domain.NewSubElement("DE3SE4", "Test Data 4")),
		newElement(s, "DataElement4", "The fourth Data Element"),
	}
}

func (s *RepositoryContractSuite) load(id uuid.UUID) *domain.Element {
	q, err := s.repo.WithDetails(s.ctx)
	s.Require().NoError(err)
	el, err := q.ByID(id).First(s.ctx)
	s.Require().NoError(err)
	return el
}

func (s *RepositoryContractSuite) count() int64 {
	n, err := s.repo.GetCount(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *RepositoryContractSuite) TestEmptyStoreCountsZero() {
	s.Equal(int64(0), s.count())
}

func (s *RepositoryContractSuite) TestInsertRoundTrip() {
	el := newElement(s, "DataElement1", "The first Data Element",
		domain.NewSubElement("DE1SE1", "Test Data 1"),
		domain.NewSubElement("DE1SE2", "Test Data 2"))
	el.SetProperty("color", "blue")

	stored, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)
	s.Equal(el.ID(), stored.ID())
	s.False(stored.Audit().CreatedAt.IsZero(), "insert fills the creation time")

	got := s.load(el.ID())
	s.Equal("DataElement1", got.Name())
	s.Equal("The first Data Element", got.Description())
	s.Equal(el.SubElements(), got.SubElements())
	s.Equal(el.ConcurrencyStamp(), got.ConcurrencyStamp())
	color, ok := got.Property("color")
	s.True(ok)
	s.Equal("blue", color)
	s.Equal(int64(1), s.count())

	status, ok := s.hooks.LastStatus("elements.insert")
	s.True(ok)
	s.Equal("success", status)
}

func (s *RepositoryContractSuite) TestInsertDuplicateIdentity() {
	el := newElement(s, "a", "b")
	_, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)

	again, err := domain.NewWithID(el.ID(), "other", "other")
	s.Require().NoError(err)
	_, err = s.repo.Insert(s.ctx, again)
	s.True(domainagg.IsCode(err, domainagg.CodeDuplicateIdentity), "got %v", err)
	s.Equal(int64(1), s.count())
	s.Equal("a", s.load(el.ID()).Name())
}

func (s *RepositoryContractSuite) TestInsertRejectsInvalidArguments() {
	_, err := s.repo.Insert(s.ctx, nil)
	s.True(domainagg.IsCode(err, domainagg.CodeInvalidArgument), "got %v", err)

	nilID := domain.Restore(uuid.Nil, "n", "d", nil, domain.Audit{}, nil, "")
	_, err = s.repo.Insert(s.ctx, nilID)
	s.True(domainagg.IsCode(err, domainagg.CodeInvalidArgument), "got %v", err)

	err = s.repo.InsertMany(s.ctx, []*domain.Element{newElement(s, "a", "b"), nil})
	s.True(domainagg.IsCode(err, domainagg.CodeInvalidArgument), "got %v", err)
	s.Equal(int64(0), s.count(), "validation runs before any write")
}

func (s *RepositoryContractSuite) TestInsertManyFixtures() {
	s.Require().NoError(s.repo.InsertMany(s.ctx, s.fixtures()))
	s.Equal(int64(4), s.count())

	q, err := s.repo.WithDetails(s.ctx)
	s.Require().NoError(err)
	third, err := q.ByName("DataElement3").First(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, third.Len())
	s.Equal("DE3SE1", third.SubElements()[0].Name)
	s.Equal("DE3SE4", third.SubElements()[3].Name)

	fourth, err := q.ByName("DataElement4").First(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, fourth.Len())
}

func (s *RepositoryContractSuite) TestInsertManyEmptyIsNoop() {
	s.NoError(s.repo.InsertMany(s.ctx, nil))
	s.NoError(s.repo.InsertMany(s.ctx, []*domain.Element{}))
	s.Equal(int64(0), s.count())
}

func (s *RepositoryContractSuite) TestInsertManyWithDuplicate() {
	first := newElement(s, "first", "d")
	dup, err := domain.NewWithID(first.ID(), "dup", "d")
	s.Require().NoError(err)

	err = s.repo.InsertMany(s.ctx, []*domain.Element{first, dup})
	s.True(domainagg.IsCode(err, domainagg.CodeDuplicateIdentity), "got %v", err)

	if s.repo.Contract().SupportsBatchAtomicity() {
		s.Equal(int64(0), s.count(), "atomic batches roll back entirely")
	} else {
		s.Equal(int64(1), s.count(), "per-aggregate batches keep the applied elements")
	}
}

func (s *RepositoryContractSuite) TestListOrderAndFilters() {
	s.Require().NoError(s.repo.InsertMany(s.ctx, s.fixtures()))

	q, err := s.repo.WithDetails(s.ctx)
	s.Require().NoError(err)
	all, err := q.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	for i, name := range []string{"DataElement1", "DataElement2", "DataElement3", "DataElement4"} {
		s.Equal(name, all[i].Name())
	}

	first, err := q.First(s.ctx)
	s.Require().NoError(err)
	s.Equal("DataElement1", first.Name())

	n, err := q.ByName("DataElement2").Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	none, err := q.ByName("missing").List(s.ctx)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RepositoryContractSuite) TestFirstNotFound() {
	q, err := s.repo.WithDetails(s.ctx)
	s.Require().NoError(err)
	id := uuid.New()
	_, err = q.ByID(id).First(s.ctx)
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
	s.Contains(err.Error(), id.String())

	_, err = q.ByName("missing").First(s.ctx)
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func (s *RepositoryContractSuite) TestUpdateReplacesState() {
	el := newElement(s, "DataElement1", "The first Data Element",
		domain.NewSubElement("a", "1"),
		domain.NewSubElement("b", "2"))
	_, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)

	loaded := s.load(el.ID())
	before := loaded.ConcurrencyStamp()
	s.Require().NoError(loaded.Rename("renamed"))
	s.Require().NoError(loaded.RemoveSubElement(domain.NewSubElement("A", "1")))
	s.Require().NoError(loaded.AddSubElement(domain.NewSubElement("c", "3")))
	s.Require().NoError(loaded.AddSubElement(domain.NewSubElement("a", "1")))
	loaded.SetProperty("size", "xl")

	updated, err := s.repo.Update(ctxutil.WithActor(s.ctx, uuid.New()), loaded)
	s.Require().NoError(err)
	s.NotEqual(before, updated.ConcurrencyStamp())

	got := s.load(el.ID())
	s.Equal("renamed", got.Name())
	s.Equal([]domain.SubElement{
		domain.NewSubElement("b", "2"),
		domain.NewSubElement("c", "3"),
		domain.NewSubElement("a", "1"),
	}, got.SubElements())
	s.Equal(updated.ConcurrencyStamp(), got.ConcurrencyStamp())
	s.NotNil(got.Audit().ModifiedAt)
	s.NotNil(got.Audit().ModifiedBy)
	size, _ := got.Property("size")
	s.Equal("xl", size)
}

func (s *RepositoryContractSuite) TestUpdateRemoveAllLeavesNoChildren() {
	el := newElement(s, "n", "d", domain.NewSubElement("a", "1"))
	_, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)

	loaded := s.load(el.ID())
	loaded.RemoveAllSubElements()
	_, err = s.repo.Update(s.ctx, loaded)
	s.Require().NoError(err)
	s.Equal(0, s.load(el.ID()).Len())
}

func (s *RepositoryContractSuite) TestUpdateStaleStampConflicts() {
	el := newElement(s, "n", "d")
	_, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)

	a := s.load(el.ID())
	b := s.load(el.ID())
	s.Require().NoError(a.Rename("first writer"))
	_, err = s.repo.Update(s.ctx, a)
	s.Require().NoError(err)

	s.Require().NoError(b.Rename("second writer"))
	_, err = s.repo.Update(s.ctx, b)
	s.True(domainagg.IsCode(err, domainagg.CodeConflict), "got %v", err)
	s.Equal("first writer", s.load(el.ID()).Name())
	s.Len(s.hooks.Conflicts, 1)
}

func (s *RepositoryContractSuite) TestFailedUpdateKeepsCallerAudit() {
	el := newElement(s, "n", "d")
	_, err := s.repo.Insert(s.ctx, el)
	s.Require().NoError(err)

	a := s.load(el.ID())
	b := s.load(el.ID())
	_, err = s.repo.Update(s.ctx, a)
	s.Require().NoError(err)

	before := b.Audit()
	_, err = s.repo.Update(s.ctx, b)
	s.True(domainagg.IsCode(err, domainagg.CodeConflict), "got %v", err)
	s.Equal(before, b.Audit())

	missing := newElement(s, "m", "d")
	before = missing.Audit()
	_, err = s.repo.Update(s.ctx, missing)
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
	s.Equal(before, missing.Audit())
}

func (s *RepositoryContractSuite) TestUpdateKeepsStoredCreationAndDeletionFields() {
	el := newElement(s, "n", "d")
	_, err := s.repo.Insert(ctxutil.WithActor(s.ctx, uuid.New()), el)
	s.Require().NoError(err)
	original := s.load(el.ID()).Audit()

	loaded := s.load(el.ID())
	forged := uuid.New()
	loaded.ResetAudit(domain.Audit{CreatedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), CreatedBy: &forged, IsDeleted: true})
	s.Require().NoError(loaded.Rename("renamed"))
	_, err = s.repo.Update(s.ctx, loaded)
	s.Require().NoError(err)

	got := s.load(el.ID())
	s.Equal("renamed", got.Name())
	s.True(got.Audit().CreatedAt.Equal(original.CreatedAt), "created %v, want %v", got.Audit().CreatedAt, original.CreatedAt)
	s.Require().NotNil(got.Audit().CreatedBy)
	s.Equal(*original.CreatedBy, *got.Audit().CreatedBy)
	s.False(got.Audit().IsDeleted)
	s.Nil(got.Audit().DeletedAt)
	s.NotNil(got.Audit().ModifiedAt)
	s.Equal(int64(1), s.count())
}

func (s *RepositoryContractSuite) TestUpdateMissingIsNotFound() {
	_, err := s.repo.Update(s.ctx, newElement(s, "n", "d"))
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
	s.Equal(int64(0), s.count())
}

func (s *RepositoryContractSuite) TestDeleteIsSoft() {
	s.Require().NoError(s.repo.InsertMany(s.ctx, s.fixtures()))
	q, err := s.repo.WithDetails(s.ctx)
	s.Require().NoError(err)
	target, err := q.ByName("DataElement3").First(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(s.ctx, target.ID()))
	s.Equal(int64(3), s.count())

	_, err = q.ByID(target.ID()).First(s.ctx)
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	deleted, err := q.IncludeDeleted().ByID(target.ID()).First(s.ctx)
	s.Require().NoError(err)
	s.True(deleted.Audit().IsDeleted)
	s.NotNil(deleted.Audit().DeletedAt)
	s.Equal(4, deleted.Len(), "children survive a soft delete")

	withDeleted, err := q.IncludeDeleted().Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), withDeleted)

	err = s.repo.Delete(s.ctx, target.ID())
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	_, err = s.repo.Update(s.ctx, deleted)
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	again, err := domain.NewWithID(target.ID(), "again", "again")
	s.Require().NoError(err)
	_, err = s.repo.Insert(s.ctx, again)
	s.True(domainagg.IsCode(err, domainagg.CodeDuplicateIdentity), "got %v", err)
}

func (s *RepositoryContractSuite) TestDeleteMissing() {
	err := s.repo.Delete(s.ctx, uuid.New())
	s.True(domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
	err = s.repo.Delete(s.ctx, uuid.Nil)
	s.True(domainagg.IsCode(err, domainagg.CodeInvalidArgument), "got %v", err)
}

func (s *RepositoryContractSuite) TestCanceledContextPropagates() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.repo.GetCount(ctx)
	s.True(errors.Is(err, context.Canceled), "got %v", err)

	_, err = s.repo.WithDetails(ctx)
	s.True(errors.Is(err, context.Canceled), "got %v", err)
}

func (s *RepositoryContractSuite) TestContractNamesBackend() {
	c := s.repo.Contract()
	s.Equal("elements", c.Name)
	s.NotEmpty(c.Backend)
}
