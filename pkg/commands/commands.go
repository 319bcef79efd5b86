// Package commands runs the write pipeline: it turns an incoming document into a stored
// record, keeping the references between documents consistent.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/cascade"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/documentinfo"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/logger"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/telemetry"
)

var tracer = otel.Tracer("pkg/commands")

const defaultMaxRetryElapsedTime = 5 * time.Second

var writeConflictCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "write_conflict_count",
	Help:      "The total number of write transactions retried after a concurrent commit.",
}, []string{"command"})

// ResourceRequest names the resource a request is for by its endpoints, e.g. "ed-fi" and
// "schools".
type ResourceRequest struct {
	ProjectEndpoint string
	Endpoint        string
}

// CommandOption configures any of the commands of this package.
type CommandOption func(*pipeline)

func WithLogger(l logger.Logger) CommandOption {
	return func(p *pipeline) {
		p.logger = l
	}
}

// WithMaxRetryElapsedTime bounds the time spent retrying transactions that failed
// because of a concurrent write. Zero disables retries.
func WithMaxRetryElapsedTime(d time.Duration) CommandOption {
	return func(p *pipeline) {
		p.maxRetryElapsedTime = d
	}
}

// WithCascadeWalker sets the walker that propagates identity updates.
func WithCascadeWalker(w *cascade.Walker) CommandOption {
	return func(p *pipeline) {
		p.walker = w
	}
}

// WithTypeCoercion converts string values at the boolean and numeric paths of a resource
// before a document is processed.
func WithTypeCoercion(enabled bool) CommandOption {
	return func(p *pipeline) {
		p.coerceTypes = enabled
	}
}

// WithClock replaces the source of record timestamps.
func WithClock(now func() time.Time) CommandOption {
	return func(p *pipeline) {
		p.now = now
	}
}

// pipeline holds what all commands share.
type pipeline struct {
	reader    schema.Reader
	datastore storage.Datastore
	logger    logger.Logger
	walker    *cascade.Walker

	maxRetryElapsedTime time.Duration
	coerceTypes         bool
	now                 func() time.Time
}

func newPipeline(reader schema.Reader, datastore storage.Datastore, opts []CommandOption) pipeline {
	p := pipeline{
		reader:              reader,
		datastore:           datastore,
		logger:              logger.NewNoopLogger(),
		maxRetryElapsedTime: defaultMaxRetryElapsedTime,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if p.walker == nil {
		p.walker = cascade.NewWalker(cascade.WithLogger(p.logger))
	}
	return p
}

func (p *pipeline) resource(req ResourceRequest) (*schema.ResourceSchema, error) {
	return p.reader.ResourceSchemaByEndpoint(req.ProjectEndpoint, req.Endpoint)
}

// timestamp returns the current time at the precision the datastores keep.
func (p *pipeline) timestamp() time.Time {
	return time.UnixMilli(p.now().UnixMilli()).UTC()
}

// prepare coerces doc if enabled and extracts its info.
func (p *pipeline) prepare(ctx context.Context, resource *schema.ResourceSchema, doc *document.Value) (*document.Value, *documentinfo.DocumentInfo, error) {
	if p.coerceTypes {
		doc = documentinfo.CoerceTypes(resource, doc)
	}
	info, err := documentinfo.Extract(ctx, resource, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, info, nil
}

// runInTx runs fn in a transaction, running it again while the datastore reports that a
// concurrent transaction prevented the commit.
func (p *pipeline) runInTx(ctx context.Context, command string, fn func(ctx context.Context, tx storage.Tx) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = p.maxRetryElapsedTime

	var b backoff.BackOff = policy
	if p.maxRetryElapsedTime == 0 {
		b = &backoff.StopBackOff{}
	}

	attempt := 1
	err := backoff.Retry(func() error {
		err := p.datastore.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrTransactionalWriteFailed) {
			return backoff.Permanent(err)
		}
		writeConflictCounter.WithLabelValues(command).Inc()
		p.logger.DebugWithContext(ctx, "retrying transaction after write conflict",
			zap.String("command", command),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		attempt++
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		telemetry.TraceError(trace.SpanFromContext(ctx), err)
	}
	return err
}

// verifyReferences fails with a *ReferenceNotFoundError when a document or descriptor the
// info references is not stored.
func verifyReferences(ctx context.Context, tx storage.Tx, info *documentinfo.DocumentInfo) error {
	ctx, span := tracer.Start(ctx, "verifyReferences")
	defer span.End()

	var wanted []identity.ReferentialID
	for _, r := range info.References {
		wanted = append(wanted, r.ReferentialID)
	}
	for _, r := range info.DescriptorReferences {
		wanted = append(wanted, r.ReferentialID)
	}
	if len(wanted) == 0 {
		return nil
	}

	found, err := tx.FindReferentialIDs(ctx, wanted)
	if err != nil {
		return err
	}
	stored := make(map[identity.ReferentialID]struct{}, len(found))
	for _, id := range found {
		stored[id] = struct{}{}
	}

	missing := &ReferenceNotFoundError{}
	seen := map[identity.ReferentialID]struct{}{}
	add := func(name string, resource identity.ResourceInfo, id identity.DocumentIdentity, refID identity.ReferentialID) {
		if _, ok := stored[refID]; ok {
			return
		}
		if _, ok := seen[refID]; ok {
			return
		}
		seen[refID] = struct{}{}
		missing.References = append(missing.References, MissingReference{
			Name:     name,
			Resource: resource,
			Identity: id,
		})
	}
	for _, r := range info.References {
		add(r.Name, r.Resource, r.Identity, r.ReferentialID)
	}
	for _, r := range info.DescriptorReferences {
		add(r.Name, r.Resource, r.Identity, r.ReferentialID)
	}

	if len(missing.References) > 0 {
		return missing
	}
	return nil
}

// referencedIDs returns the ids of everything info references.
func referencedIDs(info *documentinfo.DocumentInfo) []identity.ReferentialID {
	ids := make([]identity.ReferentialID, 0, len(info.References)+len(info.DescriptorReferences))
	for _, r := range info.References {
		ids = append(ids, r.ReferentialID)
	}
	for _, r := range info.DescriptorReferences {
		ids = append(ids, r.ReferentialID)
	}
	return storage.UniqueReferentialIDs(ids)
}

// projectVersion returns the version of the project declaring resource.
func projectVersion(reader schema.Reader, resource *schema.ResourceSchema) string {
	for _, p := range reader.Projects() {
		if p.ProjectName == resource.ProjectName {
			return p.ProjectVersion
		}
	}
	return ""
}

// applyInfo sets the ids and references of record from info.
func applyInfo(record *storage.DocumentRecord, doc *document.Value, info *documentinfo.DocumentInfo) {
	record.Document = doc
	record.ReferentialID = info.ReferentialID
	record.SuperclassReferentialID = identity.ReferentialID{}
	if info.Superclass != nil {
		record.SuperclassReferentialID = info.Superclass.ReferentialID
	}
	record.References = referencedIDs(info)
}

// resourceOf resolves the schema of a stored record.
func resourceOf(reader schema.Reader, record *storage.DocumentRecord) (*schema.ResourceSchema, error) {
	r, err := reader.ResourceSchema(record.ProjectName, record.ResourceName)
	if err != nil {
		return nil, fmt.Errorf("stored document %s: %w", record.DocumentUUID, err)
	}
	return r, nil
}
