// Package consent evaluates whether features may be seen, used or given a value.
//
// Advisors (facets implementing HidingAdvisor, DisablingAdvisor or ValidatingAdvisor) return an
// empty string for no objection or a human-readable veto reason. Their answers are collected into an
// InteractionResult, which produces the Consent handed to viewers.
package consent

import (
	"strings"

	"github.com/causeway-lang/causeway/internal/metamodel/facet"
)

// Consent is the allow or veto outcome of one interaction check
type Consent struct {
	vetoed      bool
	reason      string
	description string
	result      *InteractionResult
}

// Allowed creates a consent with no objections
func Allowed() Consent {
	return Consent{}
}

// Vetoed creates a consent refused for reason
func Vetoed(reason string) Consent {
	return Consent{vetoed: true, reason: reason}
}

// IsAllowed is true when nothing vetoed
func (c Consent) IsAllowed() bool {
	return !c.vetoed
}

// IsVetoed is true when at least one advisor objected
func (c Consent) IsVetoed() bool {
	return c.vetoed
}

// Reason is the veto reason, empty when allowed
func (c Consent) Reason() string {
	return c.reason
}

// Description is optional extra detail for viewers
func (c Consent) Description() string {
	return c.description
}

// WithDescription returns a copy of c carrying description
func (c Consent) WithDescription(description string) Consent {
	c.description = description
	return c
}

// Result is the InteractionResult the consent was created from, if any
func (c Consent) Result() *InteractionResult {
	return c.result
}

func (c Consent) String() string {
	if c.vetoed {
		return "Veto: " + c.reason
	}
	return "Allow"
}

// Veto is one advisor's objection
type Veto struct {
	Reason  string
	Advisor string
}

// InteractionResult collects the objections raised for one interaction
type InteractionResult struct {
	context InteractionContext
	vetoes  []Veto
}

// NewInteractionResult creates an empty (non-vetoing) result for ctx
func NewInteractionResult(ctx InteractionContext) *InteractionResult {
	return &InteractionResult{context: ctx}
}

// Advise records reason raised by advisor; an empty reason means no objection
func (r *InteractionResult) Advise(reason string, advisor facet.Facet) {
	if reason == "" {
		return
	}
	name := ""
	if advisor != nil {
		name = facet.Name(advisor.FacetType())
	}
	r.vetoes = append(r.vetoes, Veto{Reason: reason, Advisor: name})
}

// Context returns the interaction the result answers
func (r *InteractionResult) Context() InteractionContext {
	return r.context
}

// IsVetoing is true when at least one reason was recorded
func (r *InteractionResult) IsVetoing() bool {
	return len(r.vetoes) > 0
}

// IsNotVetoing is the negation of IsVetoing
func (r *InteractionResult) IsNotVetoing() bool {
	return !r.IsVetoing()
}

// Vetoes returns the recorded objections in the order they were raised
func (r *InteractionResult) Vetoes() []Veto {
	result := make([]Veto, len(r.vetoes))
	copy(result, r.vetoes)
	return result
}

// Reason joins all recorded reasons, empty when not vetoing
func (r *InteractionResult) Reason() string {
	if len(r.vetoes) == 0 {
		return ""
	}
	reasons := make([]string, len(r.vetoes))
	for i, v := range r.vetoes {
		reasons[i] = v.Reason
	}
	return strings.Join(reasons, "; ")
}

// CreateConsent converts the result into a Consent
func (r *InteractionResult) CreateConsent() Consent {
	if r.IsVetoing() {
		return Consent{vetoed: true, reason: r.Reason(), result: r}
	}
	return Consent{result: r}
}

// InteractionResultSet aggregates several results, e.g. one per action parameter
type InteractionResultSet struct {
	results []*InteractionResult
}

// NewInteractionResultSet creates an empty set
func NewInteractionResultSet() *InteractionResultSet {
	return &InteractionResultSet{}
}

// Add appends r and returns the set for chaining; nil results are ignored
func (s *InteractionResultSet) Add(r *InteractionResult) *InteractionResultSet {
	if r != nil {
		s.results = append(s.results, r)
	}
	return s
}

// Len returns the number of results
func (s *InteractionResultSet) Len() int {
	return len(s.results)
}

// Results returns the results in the order they were added
func (s *InteractionResultSet) Results() []*InteractionResult {
	result := make([]*InteractionResult, len(s.results))
	copy(result, s.results)
	return result
}

// IsVetoed is true iff at least one contained result is vetoing
func (s *InteractionResultSet) IsVetoed() bool {
	for _, r := range s.results {
		if r.IsVetoing() {
			return true
		}
	}
	return false
}

// IsAllowed is the negation of IsVetoed
func (s *InteractionResultSet) IsAllowed() bool {
	return !s.IsVetoed()
}

// InteractionResult returns the first vetoing result, else the first added, else nil
func (s *InteractionResultSet) InteractionResult() *InteractionResult {
	for _, r := range s.results {
		if r.IsVetoing() {
			return r
		}
	}
	if len(s.results) > 0 {
		return s.results[0]
	}
	return nil
}

// CreateConsent converts the reported result into a Consent
func (s *InteractionResultSet) CreateConsent() Consent {
	r := s.InteractionResult()
	if r == nil {
		return Allowed()
	}
	return r.CreateConsent()
}
