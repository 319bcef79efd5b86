package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/logger"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

//go:generate mockgen -source walker.go -destination ../../internal/mocks/mock_cascade_store.go -package mocks

var tracer = otel.Tracer("pkg/cascade")

const DefaultMaxDepth = 16

var ErrCascadeDepthExceeded = errors.New("cascading update exceeded the maximum depth")

var (
	rewrittenDocumentsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "cascade_rewritten_documents_count",
		Help:      "The total number of referencing documents rewritten by cascading updates.",
	})

	cascadeDepthHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: build.ProjectName,
		Name:      "cascade_depth",
		Help:      "The number of levels a cascading update walked.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})
)

// Referrer is a stored document holding a reference to a changed document.
type Referrer struct {
	DocumentUUID string
	Resource     *schema.ResourceSchema
	Document     *document.Value
}

// Store is the view of the datastore a cascade walks. Implementations run inside the
// write transaction of the update that started the cascade.
type Store interface {
	// Referrers returns the documents holding a reference to any of the given ids.
	Referrers(ctx context.Context, ids []identity.ReferentialID) ([]Referrer, error)
	// Replace stores the rewritten version of a referrer.
	Replace(ctx context.Context, referrer Referrer, doc *document.Value) error
}

// Change is an update of a document.
type Change struct {
	Resource *schema.ResourceSchema
	Original *document.Value
	Modified *document.Value
}

// Walker applies a change to every document that transitively embeds the changed identity.
type Walker struct {
	logger   logger.Logger
	maxDepth int
}

type WalkerOption func(*Walker)

func WithLogger(l logger.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = l
	}
}

// WithMaxDepth bounds the number of levels a cascade may walk.
func WithMaxDepth(depth int) WalkerOption {
	return func(w *Walker) {
		w.maxDepth = depth
	}
}

func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{
		logger:   logger.NewNoopLogger(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type pending struct {
	Change
	depth int
}

// Propagate rewrites the referrers of a changed document, then the referrers of every
// referrer whose own identity changed, until no identity changes remain. A referrer is
// followed once per (resource, identity) it is moved to, so a document rewritten twice
// in one cascade has both of its changes propagated. It returns the number of documents
// rewritten.
func (w *Walker) Propagate(ctx context.Context, store Store, change Change) (int, error) {
	ctx, span := tracer.Start(ctx, "cascade.Propagate", trace.WithAttributes(
		attribute.String("resource", change.Resource.String()),
	))
	defer span.End()

	visited := map[string]struct{}{}
	queue := []pending{{Change: change}}
	for _, doc := range []*document.Value{change.Original, change.Modified} {
		if _, err := w.visit(visited, change.Resource, doc); err != nil {
			return 0, err
		}
	}

	rewritten, maxDepth := 0, 0
	defer func() {
		cascadeDepthHistogram.Observe(float64(maxDepth))
		span.SetAttributes(attribute.Int("rewritten", rewritten))
	}()

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}

		next := queue[0]
		queue = queue[1:]
		if next.depth > maxDepth {
			maxDepth = next.depth
		}

		ids, err := referentialIDs(next.Resource, next.Original)
		if err != nil {
			return rewritten, err
		}

		referrers, err := store.Referrers(ctx, ids)
		if err != nil {
			return rewritten, fmt.Errorf("read referrers of %s: %w", next.Resource, err)
		}

		for _, r := range referrers {
			result, err := Cascade(next.Original, next.Modified, r.Document, next.Resource, r.Resource)
			if err != nil {
				return rewritten, fmt.Errorf("cascade into %s %s: %w", r.Resource, r.DocumentUUID, err)
			}
			if !result.Changed() {
				continue
			}

			if err := store.Replace(ctx, r, result.Document); err != nil {
				return rewritten, fmt.Errorf("replace %s %s: %w", r.Resource, r.DocumentUUID, err)
			}
			rewritten++
			rewrittenDocumentsCounter.Inc()

			w.logger.DebugWithContext(ctx, "cascaded identity change",
				zap.String("resource", r.Resource.String()),
				zap.String("document_uuid", r.DocumentUUID),
				zap.Int("references", result.Rewritten),
				zap.Bool("identity_changed", result.IdentityChanged),
				zap.Int("depth", next.depth),
			)

			if !result.IdentityChanged {
				continue
			}

			first, err := w.visit(visited, r.Resource, result.Document)
			if err != nil {
				return rewritten, err
			}
			if !first {
				continue
			}
			if next.depth+1 > w.maxDepth {
				return rewritten, fmt.Errorf("%w (%d) at %s %s", ErrCascadeDepthExceeded, w.maxDepth, r.Resource, r.DocumentUUID)
			}
			follow := Change{Resource: r.Resource, Original: r.Document, Modified: result.Document}
			queue = append(queue, pending{Change: follow, depth: next.depth + 1})
		}
	}

	return rewritten, nil
}

// visit records the identity of doc and reports whether it was not recorded before.
func (w *Walker) visit(visited map[string]struct{}, r *schema.ResourceSchema, doc *document.Value) (bool, error) {
	id, err := identity.Extract(r, doc)
	if err != nil {
		return false, err
	}
	key := visitKey(r, id)
	if _, ok := visited[key]; ok {
		return false, nil
	}
	visited[key] = struct{}{}
	return true, nil
}

func visitKey(r *schema.ResourceSchema, id identity.DocumentIdentity) string {
	return r.String() + "|" + id.String()
}

// referentialIDs returns the ids other documents use to reference doc: its own and, for
// subclasses, the id of its superclass identity.
func referentialIDs(r *schema.ResourceSchema, doc *document.Value) ([]identity.ReferentialID, error) {
	id, err := identity.Extract(r, doc)
	if err != nil {
		return nil, err
	}
	ids := []identity.ReferentialID{identity.ComputeReferentialID(identity.InfoOf(r), id)}
	if info, superclass, ok := identity.ExtractSuperclass(r, id); ok {
		ids = append(ids, identity.ComputeReferentialID(info, superclass))
	}
	return ids, nil
}
