package elements

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

const BackendDocument = "document"

// replaceScript swaps a stored document for ARGV[2] when it exists, is not
// soft deleted and still carries the stamp ARGV[1].
// Returns 1 on success, 0 when missing or deleted, -1 on a stale stamp.
var replaceScript = goredis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[3])
if not raw then
  return 0
end
local doc = cjson.decode(raw)
if doc.audit ~= nil and doc.audit.isDeleted == true then
  return 0
end
if doc.concurrencyStamp ~= ARGV[1] then
  return -1
end
redis.call('HSET', KEYS[1], ARGV[3], ARGV[2])
return 1
`)

type redisRepo struct {
	rdb        goredis.UniversalClient
	log        *logger.Logger
	hooks      aggregates.Hooks
	opts       options
	collection string
}

// NewRedisRepo returns the document adapter. Elements live as JSON documents
// in one hash per collection; each aggregate write is atomic on its own.
func NewRedisRepo(rdb goredis.UniversalClient, baseLog *logger.Logger, opts ...Option) domain.Repository {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	o := buildOptions(opts)
	return &redisRepo{
		rdb:        rdb,
		log:        baseLog.With("repo", "ElementRepo", "backend", BackendDocument),
		hooks:      o.hooks,
		opts:       o,
		collection: CollectionName(o.collectionPrefix),
	}
}

// CollectionName is the hash key holding all element documents.
func CollectionName(prefix string) string {
	return strings.TrimSpace(prefix) + "Elements"
}

func (r *redisRepo) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:       "elements",
		Backend:    BackendDocument,
		TxBehavior: domainagg.TxDisabled,
		Notes:      "one document per element; batches apply element by element",
	}
}

func (r *redisRepo) GetCount(ctx context.Context) (int64, error) {
	return (&redisQuery{repo: r}).count(ctx, "elements.count")
}

func (r *redisRepo) Insert(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	const op = "elements.insert"
	if err := domain.ValidateForWrite(op, el); err != nil {
		return nil, err
	}
	err := aggregates.Observe(r.hooks, op, func() error {
		return r.insertOne(ctx, op, el)
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("element inserted", "id", el.ID(), "sub_elements", el.Len())
	return el, nil
}

func (r *redisRepo) InsertMany(ctx context.Context, els []*domain.Element) error {
	const op = "elements.insert_many"
	for _, el := range els {
		if err := domain.ValidateForWrite(op, el); err != nil {
			return err
		}
	}
	if len(els) == 0 {
		return nil
	}
	return aggregates.Observe(r.hooks, op, func() error {
		var errs []error
		for _, el := range els {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			if err := r.insertOne(ctx, op, el); err != nil {
				errs = append(errs, aggregates.MapError(op, err))
			}
		}
		if len(errs) == 1 {
			return errs[0]
		}
		return errors.Join(errs...)
	})
}

func (r *redisRepo) insertOne(ctx context.Context, op string, el *domain.Element) error {
	if el.Audit().CreatedAt.IsZero() {
		r.opts.stamper.Created(ctx, el)
	}
	raw, err := encodeDocument(el)
	if err != nil {
		return err
	}
	ok, err := r.rdb.HSetNX(ctx, r.collection, el.ID().String(), raw).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domainagg.DuplicateIdentity(op, el.ID())
	}
	return nil
}

func (r *redisRepo) WithDetails(ctx context.Context) (domain.DetailsQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &redisQuery{repo: r}, nil
}

func (r *redisRepo) Update(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	const op = "elements.update"
	if err := domain.ValidateForWrite(op, el); err != nil {
		return nil, err
	}
	prev := el.Audit()
	r.opts.stamper.Modified(ctx, el)
	expected := el.ConcurrencyStamp()
	next := domain.NewConcurrencyStamp()
	err := aggregates.Observe(r.hooks, op, func() error {
		stored, err := r.load(ctx, el.ID())
		if err != nil {
			return err
		}
		if stored == nil || stored.Audit().IsDeleted {
			return domainagg.NotFound(op, el.ID())
		}
		// Only the modification fields change on update. The replace script
		// rejects the write if the stored document moved on since the load.
		el.ResetAudit(mergeModified(stored.Audit(), el.Audit()))
		el.SetConcurrencyStamp(next)
		raw, err := encodeDocument(el)
		el.SetConcurrencyStamp(expected)
		if err != nil {
			return err
		}
		return r.replace(ctx, op, el.ID(), expected, raw)
	})
	if err != nil {
		el.ResetAudit(prev)
		return nil, err
	}
	el.SetConcurrencyStamp(next)
	return el, nil
}

func (r *redisRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "elements.delete"
	if id == uuid.Nil {
		return domainagg.InvalidArgument(op, "id", "is required")
	}
	return aggregates.Observe(r.hooks, op, func() error {
		el, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		if el == nil || el.Audit().IsDeleted {
			return domainagg.NotFound(op, id)
		}
		expected := el.ConcurrencyStamp()
		r.opts.stamper.Deleted(ctx, el)
		el.SetConcurrencyStamp(domain.NewConcurrencyStamp())
		raw, err := encodeDocument(el)
		if err != nil {
			return err
		}
		return r.replace(ctx, op, id, expected, raw)
	})
}

func (r *redisRepo) replace(ctx context.Context, op string, id uuid.UUID, expectedStamp, raw string) error {
	res, err := replaceScript.Run(ctx, r.rdb, []string{r.collection}, expectedStamp, raw, id.String()).Int()
	if err != nil {
		return err
	}
	switch res {
	case 1:
		return nil
	case 0:
		return domainagg.NotFound(op, id)
	default:
		return aggregates.ConflictError("element was modified concurrently: " + id.String())
	}
}

// load returns nil without error when no document exists.
func (r *redisRepo) load(ctx context.Context, id uuid.UUID) (*domain.Element, error) {
	raw, err := r.rdb.HGet(ctx, r.collection, id.String()).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument(raw)
}

func (r *redisRepo) loadAll(ctx context.Context) ([]*domain.Element, error) {
	values, err := r.rdb.HVals(ctx, r.collection).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Element, 0, len(values))
	for _, raw := range values {
		el, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}
