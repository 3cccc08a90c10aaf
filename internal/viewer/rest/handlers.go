package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/introspect"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/memento"
)

const maxBody = 1 << 20

// Reference points at a domain object through its memento
type Reference struct {
	Memento     string `json:"memento"`
	LogicalType string `json:"logicalType"`
	Title       string `json:"title"`
}

// ObjectRepr renders an object and the members visible to the actor
type ObjectRepr struct {
	Reference
	State       string           `json:"state"`
	TypeName    string           `json:"typeName"`
	Properties  []PropertyRepr   `json:"properties"`
	Collections []CollectionRepr `json:"collections"`
	Actions     []ActionRepr     `json:"actions"`
}

// PropertyRepr is a visible property and its value
type PropertyRepr struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Value    interface{} `json:"value"`
	Disabled string      `json:"disabled,omitempty"`
}

// CollectionRepr is a visible collection and its elements
type CollectionRepr struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Elements []interface{} `json:"elements"`
}

// ActionRepr is a visible action
type ActionRepr struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Disabled   string                       `json:"disabled,omitempty"`
	Parameters []introspect.ParameterDetail `json:"parameters,omitempty"`
}

// InvokeRequest is the body of an action invocation; arguments are positional
type InvokeRequest struct {
	Arguments []json.RawMessage `json:"arguments"`
}

// InvokeResponse carries the result and the target's memento after the invocation
type InvokeResponse struct {
	Target Reference   `json:"target"`
	Result interface{} `json:"result"`
}

func (s *Server) requestFields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}

func (s *Server) interaction(r *http.Request) (spec.Interaction, error) {
	in := spec.UserInteraction(ActorFrom(r.Context()))
	if where := r.URL.Query().Get("where"); where != "" {
		w, err := consent.ParseWhere(where)
		if err != nil {
			return in, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		in.Where = w
	}
	return in, nil
}

func (s *Server) lookupSpec(name string) (*spec.ObjectSpecification, error) {
	sp, ok := s.app.Loader.LookupByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: type %s", ErrNotFound, name)
	}
	return sp, nil
}

func (s *Server) listSpecs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, introspect.SummarizeAll(s.app.Loader.AllSpecifications(), LocaleFrom(r.Context())))
}

func (s *Server) describeSpec(w http.ResponseWriter, r *http.Request) {
	sp, err := s.lookupSpec(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	withFacets := false
	if v := r.URL.Query().Get("facets"); v != "" {
		if withFacets, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: facets=%q", ErrBadRequest, v))
			return
		}
	}
	writeJSON(w, http.StatusOK, introspect.Describe(sp, LocaleFrom(r.Context()), withFacets))
}

func (s *Server) memberFacets(w http.ResponseWriter, r *http.Request) {
	sp, err := s.lookupSpec(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "member")
	m, ok := sp.Member(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: member %s of %s", ErrNotFound, id, sp.LogicalTypeName()))
		return
	}
	writeJSON(w, http.StatusOK, introspect.Facets(m))
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.lookupSpec(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	adapters, err := s.app.Objects.AllInstances(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refs := make([]Reference, 0, len(adapters))
	for _, a := range adapters {
		ref, err := s.reference(r.Context(), a)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		refs = append(refs, ref)
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	refs := []Reference{}
	for _, name := range s.app.Beans.Names() {
		bean, ok := s.app.Beans.Lookup(name)
		if !ok {
			continue
		}
		a, err := s.app.Objects.Adapt(r.Context(), bean)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ref, err := s.reference(r.Context(), a)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		refs = append(refs, ref)
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) target(r *http.Request) (*adapter.ObjectAdapter, error) {
	m, err := memento.Parse(chi.URLParam(r, "memento"))
	if err != nil {
		return nil, err
	}
	return s.app.Mementos.ReconstructObjectAdapter(r.Context(), m)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	target, err := s.target(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.interaction(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repr, err := s.render(r.Context(), target, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repr)
}

func (s *Server) memberConsent(w http.ResponseWriter, r *http.Request) {
	target, err := s.target(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.interaction(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "member")
	m, ok := target.Specification().Member(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: member %s of %s", ErrNotFound, id, target.Specification().LogicalTypeName()))
		return
	}
	writeJSON(w, http.StatusOK, introspect.Consent(m, target, in))
}

func (s *Server) invokeAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, err := s.target(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.interaction(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "action")
	action, ok := target.Specification().Action(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: action %s of %s", ErrNotFound, id, target.Specification().LogicalTypeName()))
		return
	}

	var req InvokeRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
	}
	args, err := s.arguments(ctx, action, req.Arguments)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := action.Execute(target, args, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// writes back changes made to an attached entity
	if target.State().IsPersistent() {
		if err := s.app.Objects.Persist(ctx, target); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	ref, err := s.reference(ctx, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	value, err := s.value(ctx, result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Target: ref, Result: value})
}

// arguments decodes raw into the parameter types of action. Missing trailing arguments are zero
// values; parameters of domain types take a memento string.
func (s *Server) arguments(ctx context.Context, action *spec.ObjectAction, raw []json.RawMessage) ([]interface{}, error) {
	params := action.Parameters()
	if len(raw) > len(params) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadRequest, action.ID(), len(params), len(raw))
	}
	args := make([]interface{}, len(params))
	for i, p := range params {
		if i >= len(raw) {
			args[i] = reflect.Zero(p.Type()).Interface()
			continue
		}
		if s.isDomainType(p.Type()) {
			var encoded string
			if err := json.Unmarshal(raw[i], &encoded); err != nil {
				return nil, fmt.Errorf("%w: argument %d of %s must be a memento", ErrBadRequest, i, action.ID())
			}
			m, err := memento.Parse(encoded)
			if err != nil {
				return nil, err
			}
			a, err := s.app.Mementos.ReconstructObjectAdapter(ctx, m)
			if err != nil {
				return nil, err
			}
			args[i] = a.Pojo()
			continue
		}
		ptr := reflect.New(p.Type())
		if err := json.Unmarshal(raw[i], ptr.Interface()); err != nil {
			return nil, fmt.Errorf("%w: argument %d of %s: %v", ErrBadRequest, i, action.ID(), err)
		}
		args[i] = ptr.Elem().Interface()
	}
	return args, nil
}

func (s *Server) isDomainType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	_, ok := s.app.Registry.Lookup(t)
	return ok
}

func (s *Server) reference(ctx context.Context, a *adapter.ObjectAdapter) (Reference, error) {
	m, err := s.app.Mementos.MementoForAdapter(ctx, a)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Memento: m.String(), LogicalType: a.Specification().LogicalTypeName(), Title: a.Title()}, nil
}

// value renders v for JSON: domain objects become references, slices are rendered element-wise
func (s *Server) value(ctx context.Context, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		elements := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := s.value(ctx, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			elements = append(elements, e)
		}
		return elements, nil
	}
	if !s.isDomainType(rv.Type()) {
		return v, nil
	}
	a, err := s.app.Objects.Adapt(ctx, v)
	if err != nil {
		return nil, err
	}
	return s.reference(ctx, a)
}

func (s *Server) render(ctx context.Context, target *adapter.ObjectAdapter, in spec.Interaction) (*ObjectRepr, error) {
	ref, err := s.reference(ctx, target)
	if err != nil {
		return nil, err
	}
	sp := target.Specification()
	locale := LocaleFrom(ctx)
	repr := &ObjectRepr{
		Reference:   ref,
		State:       target.State().String(),
		TypeName:    introspect.NameIn(sp, sp.Name(), locale),
		Properties:  []PropertyRepr{},
		Collections: []CollectionRepr{},
		Actions:     []ActionRepr{},
	}

	for _, p := range sp.Properties() {
		if p.HiddenReason(target, in) != "" {
			continue
		}
		v, err := s.value(ctx, p.Get(target))
		if err != nil {
			return nil, err
		}
		repr.Properties = append(repr.Properties, PropertyRepr{
			ID:       p.ID(),
			Name:     introspect.NameIn(p, p.Name(), locale),
			Value:    v,
			Disabled: p.DisabledReason(target, in),
		})
	}
	for _, c := range sp.Collections() {
		if c.HiddenReason(target, in) != "" {
			continue
		}
		cr := CollectionRepr{ID: c.ID(), Name: introspect.NameIn(c, c.Name(), locale), Elements: []interface{}{}}
		for _, e := range c.Elements(target) {
			v, err := s.value(ctx, e)
			if err != nil {
				return nil, err
			}
			cr.Elements = append(cr.Elements, v)
		}
		repr.Collections = append(repr.Collections, cr)
	}
	for _, a := range sp.Actions() {
		if a.HiddenReason(target, in) != "" {
			continue
		}
		ar := ActionRepr{ID: a.ID(), Name: introspect.NameIn(a, a.Name(), locale), Disabled: a.DisabledReason(target, in)}
		for _, p := range a.Parameters() {
			ar.Parameters = append(ar.Parameters, introspect.ParameterDetail{
				Index:     p.Index(),
				Name:      introspect.NameIn(p, p.Name(), locale),
				Type:      p.Type().String(),
				Mandatory: p.IsMandatory(),
			})
		}
		repr.Actions = append(repr.Actions, ar)
	}
	return repr, nil
}
