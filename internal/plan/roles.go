package plan

import "strings"

// Role is the clinical role a structure plays in verification.
type Role string

const (
	RolePTV     Role = "PTV"
	RoleCTV     Role = "CTV"
	RoleGTV     Role = "GTV"
	RoleITV     Role = "ITV"
	RoleBody    Role = "BODY"
	RoleOrgan   Role = "ORGAN"
	RoleSupport Role = "SUPPORT"
	RoleUnknown Role = "UNKNOWN"
)

// IsTarget reports whether the role is one of the nested target volumes.
func (r Role) IsTarget() bool {
	switch r {
	case RolePTV, RoleCTV, RoleGTV, RoleITV:
		return true
	}
	return false
}

// roleRule maps an upper-cased token to a role. Rules are evaluated in
// order; the first match wins, so more specific tokens come first.
type roleRule struct {
	token string
	role  Role
}

// dicomTypeRoles maps explicit DICOM structure types to roles.
var dicomTypeRoles = map[string]Role{
	"PTV":       RolePTV,
	"CTV":       RoleCTV,
	"GTV":       RoleGTV,
	"ITV":       RoleITV,
	"EXTERNAL":  RoleBody,
	"BODY":      RoleBody,
	"ORGAN":     RoleOrgan,
	"AVOIDANCE": RoleOrgan,
	"SUPPORT":   RoleSupport,
	"FIXATION":  RoleSupport,
}

// nameRoleRules is the fallback name-substring table, applied only when the
// DICOM type gives no answer.
var nameRoleRules = []roleRule{
	{"PTV", RolePTV},
	{"CTV", RoleCTV},
	{"GTV", RoleGTV},
	{"ITV", RoleITV},
	{"BODY", RoleBody},
	{"EXTERNAL", RoleBody},
	{"OUTLINE", RoleBody},
	{"COUCH", RoleSupport},
	{"TABLE", RoleSupport},
	{"BOLUS", RoleSupport},
}

// RoleOf infers a structure's role: explicit DICOM type first, else
// case-insensitive name-substring match. Every analyzer goes through this
// single precedence rule.
func RoleOf(s Structure) Role {
	if r, ok := dicomTypeRoles[strings.ToUpper(strings.TrimSpace(s.DICOMType))]; ok {
		return r
	}
	name := strings.ToUpper(s.ID)
	for _, rule := range nameRoleRules {
		if strings.Contains(name, rule.token) {
			return rule.role
		}
	}
	if s.DICOMType != "" {
		return RoleOrgan
	}
	return RoleUnknown
}

// StructuresByRole returns the structures with the given role, in set order.
func StructuresByRole(structures []Structure, role Role) []Structure {
	var out []Structure
	for _, s := range structures {
		if RoleOf(s) == role {
			out = append(out, s)
		}
	}
	return out
}

// Targets returns all target-volume structures in set order.
func Targets(structures []Structure) []Structure {
	var out []Structure
	for _, s := range structures {
		if RoleOf(s).IsTarget() {
			out = append(out, s)
		}
	}
	return out
}

// BodyStructures returns the BODY/EXTERNAL structures in set order.
func BodyStructures(structures []Structure) []Structure {
	return StructuresByRole(structures, RoleBody)
}
