package facets

import (
	"strings"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
)

// AuthorizationFacet restricts a feature to actors holding one of Roles. Framework-initiated
// interactions are never restricted.
type AuthorizationFacet interface {
	consent.HidingAdvisor
	consent.DisablingAdvisor
	Roles() []string
}

type authorization struct {
	facet.Base
	roles   []string
	disable bool
}

// NewAuthorizationFacet creates a role check that hides, or only disables when disable is set
func NewAuthorizationFacet(roles []string, disable bool, holder facet.Holder) AuthorizationFacet {
	return &authorization{
		Base:    facet.NewBase(facet.TypeOf[AuthorizationFacet](), holder, facet.PrecedenceLow),
		roles:   append([]string(nil), roles...),
		disable: disable,
	}
}

func (f *authorization) Roles() []string {
	return append([]string(nil), f.roles...)
}

func (f *authorization) permitted(ctx *consent.InteractionContext) bool {
	return !ctx.InitiatedBy.IsUser() || ctx.Actor.HasAnyRole(f.roles)
}

// Hides implements consent.HidingAdvisor
func (f *authorization) Hides(ctx *consent.VisibilityContext) string {
	if f.disable || f.permitted(&ctx.InteractionContext) {
		return ""
	}
	return "Not authorized to view"
}

// Disables implements consent.DisablingAdvisor
func (f *authorization) Disables(ctx *consent.UsabilityContext) string {
	if f.permitted(&ctx.InteractionContext) {
		return ""
	}
	return "Not authorized to edit (requires " + strings.Join(f.roles, " or ") + ")"
}

func (f *authorization) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["roles"] = strings.Join(f.roles, ",")
	attrs["disableOnly"] = f.disable
	return attrs
}
