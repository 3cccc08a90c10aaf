package consent

import (
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
)

// HidingAdvisor is implemented by facets that can hide a feature
type HidingAdvisor interface {
	facet.Facet
	// Hides returns a non-empty reason to hide the feature
	Hides(ctx *VisibilityContext) string
}

// DisablingAdvisor is implemented by facets that can disable a feature
type DisablingAdvisor interface {
	facet.Facet
	// Disables returns a non-empty reason to disable the feature
	Disables(ctx *UsabilityContext) string
}

// ValidatingAdvisor is implemented by facets that can reject a proposed value or argument list
type ValidatingAdvisor interface {
	facet.Facet
	// Invalidates returns a non-empty reason to reject the proposal
	Invalidates(ctx *ValidityContext) string
}

// IsVisibleResult consults every hiding advisor among the winning facets of h
func IsVisibleResult(h facet.Holder, ctx *VisibilityContext) *InteractionResult {
	result := NewInteractionResult(ctx.InteractionContext)
	for _, advisor := range facet.WinnersImplementing[HidingAdvisor](h) {
		result.Advise(advisor.Hides(ctx), advisor)
	}
	return result
}

// IsUsableResult consults every disabling advisor among the winning facets of h
func IsUsableResult(h facet.Holder, ctx *UsabilityContext) *InteractionResult {
	result := NewInteractionResult(ctx.InteractionContext)
	for _, advisor := range facet.WinnersImplementing[DisablingAdvisor](h) {
		result.Advise(advisor.Disables(ctx), advisor)
	}
	return result
}

// IsValidResult consults every validating advisor among the winning facets of h
func IsValidResult(h facet.Holder, ctx *ValidityContext) *InteractionResult {
	result := NewInteractionResult(ctx.InteractionContext)
	for _, advisor := range facet.WinnersImplementing[ValidatingAdvisor](h) {
		result.Advise(advisor.Invalidates(ctx), advisor)
	}
	return result
}

// HiddenReason is the fast path: the first hiding reason, or "" if visible
func HiddenReason(h facet.Holder, ctx *VisibilityContext) string {
	for _, advisor := range facet.WinnersImplementing[HidingAdvisor](h) {
		if reason := advisor.Hides(ctx); reason != "" {
			return reason
		}
	}
	return ""
}

// DisabledReason is the fast path: the first disabling reason, or "" if usable
func DisabledReason(h facet.Holder, ctx *UsabilityContext) string {
	for _, advisor := range facet.WinnersImplementing[DisablingAdvisor](h) {
		if reason := advisor.Disables(ctx); reason != "" {
			return reason
		}
	}
	return ""
}

// InvalidReason is the fast path: the first validation reason, or "" if valid
func InvalidReason(h facet.Holder, ctx *ValidityContext) string {
	for _, advisor := range facet.WinnersImplementing[ValidatingAdvisor](h) {
		if reason := advisor.Invalidates(ctx); reason != "" {
			return reason
		}
	}
	return ""
}
