package specloader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

var (
	// ErrNotLoadable is returned for types that substitute to nothing (anonymous, ignored, Programmatic)
	ErrNotLoadable = errors.New("type cannot be loaded into the metamodel")
	// ErrUnregistered is returned for types without a registered schema
	ErrUnregistered = errors.New("type is not registered")
	// ErrDisposed is returned after Dispose until the metamodel is created again
	ErrDisposed = errors.New("metamodel disposed")
)

const tracerName = "github.com/causeway-lang/causeway/internal/metamodel/specloader"

// Postprocessor rewrites or augments the facets of a freshly built specification
type Postprocessor interface {
	Name() string
	Postprocess(s *spec.ObjectSpecification)
}

// Validator checks the complete metamodel after it has been created
type Validator interface {
	Name() string
	Validate(specs []*spec.ObjectSpecification, failures *exceptions.ValidationFailures)
}

// Config holds loader settings
type Config struct {
	// IgnoredPackages are import path prefixes whose types never enter the metamodel
	IgnoredPackages []string
	Postprocessors  []Postprocessor
	Validators      []Validator
	Logger          *zap.Logger
	// TracerProvider defaults to the global OpenTelemetry provider
	TracerProvider trace.TracerProvider
}

// snapshot is an immutable view of the metamodel; readers never lock
type snapshot struct {
	generation int64
	disposed   bool
	byType     map[reflect.Type]*spec.ObjectSpecification
	byName     map[string]*spec.ObjectSpecification
	// built collects failures of lazily and eagerly built specifications
	built      []exceptions.ValidationFailure
	// validated holds what the last CreateMetaModel found beyond build failures
	validated  []exceptions.ValidationFailure
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		generation: s.generation,
		disposed:   s.disposed,
		byType:     make(map[reflect.Type]*spec.ObjectSpecification, len(s.byType)+1),
		byName:     make(map[string]*spec.ObjectSpecification, len(s.byName)+1),
		built:      append([]exceptions.ValidationFailure(nil), s.built...),
		validated:  append([]exceptions.ValidationFailure(nil), s.validated...),
	}
	for k, v := range s.byType {
		next.byType[k] = v
	}
	for k, v := range s.byName {
		next.byName[k] = v
	}
	return next
}

// Loader is the specification loader. Lookups read an atomically published snapshot; builds are
// serialized on a single mutex and publish a new snapshot when done.
type Loader struct {
	registry    *schema.Registry
	model       *progmodel.ProgrammingModel
	substitutor *Substitutor
	cfg         Config
	logger      *zap.Logger
	tracer      trace.Tracer

	buildMu sync.Mutex
	state   atomic.Pointer[snapshot]
}

// NewLoader creates a loader over the schemas of registry
func NewLoader(registry *schema.Registry, model *progmodel.ProgrammingModel, cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	l := &Loader{
		registry: registry,
		model:    model,
		cfg:      cfg,
		logger:   logger.Named("specloader"),
		tracer:   provider.Tracer(tracerName),
	}
	l.substitutor = NewSubstitutor(cfg.IgnoredPackages, l.isProgrammatic)
	l.state.Store(emptySnapshot(0))
	return l
}

func emptySnapshot(generation int64) *snapshot {
	return &snapshot{
		generation: generation,
		byType:     make(map[reflect.Type]*spec.ObjectSpecification),
		byName:     make(map[string]*spec.ObjectSpecification),
	}
}

func (l *Loader) isProgrammatic(t reflect.Type) bool {
	s, ok := l.registry.Lookup(t)
	return ok && schema.Has[schema.Programmatic](s.Annotations)
}

// Substitutor returns the substitutor the loader applies before every lookup
func (l *Loader) Substitutor() *Substitutor {
	return l.substitutor
}

// Registry returns the schema registry the loader builds from
func (l *Loader) Registry() *schema.Registry {
	return l.registry
}

// Generation increases every time the metamodel is disposed
func (l *Loader) Generation() int64 {
	return l.state.Load().generation
}

// LoadSpecification returns the specification of t, building it on first use.
// Loading the same type twice returns the identical specification.
func (l *Loader) LoadSpecification(t reflect.Type) (*spec.ObjectSpecification, error) {
	return l.LoadSpecificationContext(context.Background(), t)
}

// LoadSpecificationContext is LoadSpecification with a context for tracing
func (l *Loader) LoadSpecificationContext(ctx context.Context, t reflect.Type) (*spec.ObjectSpecification, error) {
	if snap := l.state.Load(); !snap.disposed && t != nil {
		if s, ok := snap.byType[deref(t)]; ok {
			return s, nil
		}
	}

	target, ok := l.substitutor.Substitute(t)
	if !ok {
		return nil, fmt.Errorf("%v: %w", t, ErrNotLoadable)
	}
	if snap := l.state.Load(); !snap.disposed {
		if s, ok := snap.byType[target]; ok {
			return s, nil
		}
	}

	l.buildMu.Lock()
	defer l.buildMu.Unlock()

	snap := l.state.Load()
	if snap.disposed {
		return nil, ErrDisposed
	}
	if s, ok := snap.byType[target]; ok {
		return s, nil
	}

	draft := snap.clone()
	s, err := l.build(ctx, target, draft, nil)
	if err != nil {
		return nil, err
	}
	l.state.Store(draft)
	return s, nil
}

// SpecificationFor loads the specification of pojo's dynamic type
func (l *Loader) SpecificationFor(pojo interface{}) (*spec.ObjectSpecification, error) {
	if pojo == nil {
		return nil, fmt.Errorf("nil pojo: %w", ErrNotLoadable)
	}
	return l.LoadSpecification(reflect.TypeOf(pojo))
}

// LookupByName returns the specification registered under a logical type name
func (l *Loader) LookupByName(name string) (*spec.ObjectSpecification, bool) {
	if s, ok := l.state.Load().byName[name]; ok {
		return s, true
	}
	registered, ok := l.registry.LookupName(name)
	if !ok {
		return nil, false
	}
	s, err := l.LoadSpecification(registered.GoType)
	if err != nil {
		return nil, false
	}
	return s, true
}

// AllSpecifications returns the loaded specifications sorted by logical name
func (l *Loader) AllSpecifications() []*spec.ObjectSpecification {
	snap := l.state.Load()
	result := make([]*spec.ObjectSpecification, 0, len(snap.byName))
	for _, s := range snap.byName {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LogicalTypeName() < result[j].LogicalTypeName()
	})
	return result
}

// Failures returns the validation failures recorded for the current metamodel
func (l *Loader) Failures() []exceptions.ValidationFailure {
	snap := l.state.Load()
	failures := exceptions.NewValidationFailures()
	for _, f := range append(append([]exceptions.ValidationFailure(nil), snap.built...), snap.validated...) {
		failures.Add(f.Origin, "%s", f.Message)
	}
	return failures.Failures()
}

// CreateMetaModel eagerly builds every registered type, then runs the validators.
// All problems are returned together as *exceptions.ValidationFailures.
func (l *Loader) CreateMetaModel(ctx context.Context) error {
	ctx, span := l.tracer.Start(ctx, "specloader.CreateMetaModel")
	defer span.End()

	l.buildMu.Lock()
	defer l.buildMu.Unlock()

	snap := l.state.Load()
	draft := snap.clone()
	draft.disposed = false

	validated := exceptions.NewValidationFailures()
	for _, s := range l.registry.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok := l.substitutor.Substitute(s.GoType)
		if !ok {
			l.logger.Debug("skipping type", zap.String("type", s.LogicalName))
			continue
		}
		if _, built := draft.byType[target]; built {
			continue
		}
		if _, err := l.build(ctx, target, draft, nil); err != nil {
			validated.Add(s.LogicalName, "%v", err)
		}
	}

	specs := make([]*spec.ObjectSpecification, 0, len(draft.byName))
	for _, s := range draft.byName {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].LogicalTypeName() < specs[j].LogicalTypeName() })
	for _, v := range l.cfg.Validators {
		v.Validate(specs, validated)
	}
	draft.validated = validated.Failures()
	l.state.Store(draft)

	failures := exceptions.NewValidationFailures()
	for _, f := range draft.built {
		failures.Add(f.Origin, "%s", f.Message)
	}
	failures.Merge(validated)

	span.SetAttributes(attribute.Int("causeway.specifications", len(specs)))
	if failures.HasFailures() {
		span.SetStatus(codes.Error, "metamodel invalid")
		l.logger.Error("metamodel invalid", zap.Int("failures", failures.Count()))
		return failures
	}
	l.logger.Info("metamodel created", zap.Int("specifications", len(specs)))
	return nil
}

// Dispose drops every specification. Lookups fail with ErrDisposed until CreateMetaModel runs again.
func (l *Loader) Dispose() {
	l.buildMu.Lock()
	defer l.buildMu.Unlock()

	next := emptySnapshot(l.state.Load().generation + 1)
	next.disposed = true
	l.state.Store(next)
	l.logger.Info("metamodel disposed", zap.Int64("generation", next.generation))
}

// Reload disposes the metamodel and creates it again, producing new specification instances
func (l *Loader) Reload(ctx context.Context) error {
	l.Dispose()
	return l.CreateMetaModel(ctx)
}

// build creates the specification of target inside draft. visiting guards against embedding cycles.
// buildMu must be held.
func (l *Loader) build(ctx context.Context, target reflect.Type, draft *snapshot, visiting map[reflect.Type]bool) (*spec.ObjectSpecification, error) {
	if s, ok := draft.byType[target]; ok {
		return s, nil
	}
	registered, ok := l.registry.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("%v: %w", target, ErrUnregistered)
	}
	if visiting == nil {
		visiting = make(map[reflect.Type]bool)
	}
	if visiting[target] {
		return nil, fmt.Errorf("%s embeds itself", registered.LogicalName)
	}
	visiting[target] = true
	defer delete(visiting, target)

	_, span := l.tracer.Start(ctx, "specloader.build",
		trace.WithAttributes(attribute.String("causeway.type", registered.LogicalName)))
	defer span.End()

	var superclass *spec.ObjectSpecification
	for _, embedded := range registered.Embedded {
		sub, ok := l.substitutor.Substitute(embedded)
		if !ok {
			continue
		}
		if _, registeredToo := l.registry.Lookup(sub); !registeredToo {
			continue
		}
		parent, err := l.build(ctx, sub, draft, visiting)
		if err != nil {
			return nil, err
		}
		superclass = parent
		break
	}

	s := spec.New(registered, superclass)
	failures := l.model.Process(registered, s)
	for _, p := range l.cfg.Postprocessors {
		p.Postprocess(s)
	}

	draft.byType[target] = s
	draft.byName[registered.LogicalName] = s
	if failures.HasFailures() {
		draft.built = append(draft.built, failures.Failures()...)
		span.SetStatus(codes.Error, "invalid declarations")
		l.logger.Warn("specification has validation failures",
			zap.String("type", registered.LogicalName),
			zap.Int("failures", failures.Count()))
	}
	span.SetAttributes(attribute.Int("causeway.facets", s.FacetCount()))
	l.logger.Debug("specification built",
		zap.String("type", registered.LogicalName),
		zap.Stringer("sort", registered.Sort))
	return s, nil
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
