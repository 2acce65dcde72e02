package entity

// Role values carried by the identity service
const (
	RoleCitizen    = "citizen"
	RoleContractor = "contractor"
	RoleStaff      = "staff"
	RoleInspector  = "inspector"
	RoleAdmin      = "admin"
)

// ModulePermission is one module/action grant scoped to a municipality
type ModulePermission struct {
	MunicipalityID string `json:"municipalityId"`
	Module         string `json:"module"`
	Action         string `json:"action"`
}

// AuthenticatedPrincipal is the caller identity passed explicitly into every
// core operation. It replaces ambient request state: services never reach
// back into the HTTP layer to find out who is calling.
type AuthenticatedPrincipal struct {
	UserID       string             `json:"userId"`
	GlobalRole   string             `json:"globalRole"`
	ContractorID string             `json:"contractorId,omitempty"`
	Permissions  []ModulePermission `json:"permissions,omitempty"`
}

// IsStaff reports whether the principal is municipal staff or above
func (p AuthenticatedPrincipal) IsStaff() bool {
	return p.GlobalRole == RoleStaff || p.GlobalRole == RoleAdmin || p.GlobalRole == RoleInspector
}

// IsApplicant reports whether the principal is a citizen or contractor
func (p AuthenticatedPrincipal) IsApplicant() bool {
	return p.GlobalRole == RoleCitizen || p.GlobalRole == RoleContractor
}

// HasModulePermission reports whether the principal holds the module/action
// grant for the municipality. Admins hold every grant implicitly.
func (p AuthenticatedPrincipal) HasModulePermission(municipalityID, module, action string) bool {
	if p.GlobalRole == RoleAdmin {
		return true
	}
	for _, perm := range p.Permissions {
		if perm.MunicipalityID == municipalityID && perm.Module == module && perm.Action == action {
			return true
		}
	}
	return false
}

// HasAccessToMunicipality reports whether the principal holds any grant for
// the municipality.
func (p AuthenticatedPrincipal) HasAccessToMunicipality(municipalityID string) bool {
	if p.GlobalRole == RoleAdmin {
		return true
	}
	for _, perm := range p.Permissions {
		if perm.MunicipalityID == municipalityID {
			return true
		}
	}
	return false
}

// Owns reports whether the principal owns a permit submitted by submittedBy
// with contractor contractorID.
func (p AuthenticatedPrincipal) Owns(submittedBy, contractorID string) bool {
	if p.UserID != "" && p.UserID == submittedBy {
		return true
	}
	return p.ContractorID != "" && p.ContractorID == contractorID
}
