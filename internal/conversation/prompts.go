package conversation

import "strings"

// Role selects the instruction block used when answering.
type Role string

const (
	RolePatient Role = "patient"
	RoleVisitor Role = "visitor"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Roles returns the known roles in a stable order.
func Roles() []Role {
	return []Role{RolePatient, RoleVisitor, RoleStaff, RoleAdmin}
}

// NormalizeRole maps arbitrary input to a known role, defaulting to patient.
func NormalizeRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleVisitor:
		return RoleVisitor
	case RoleStaff:
		return RoleStaff
	case RoleAdmin:
		return RoleAdmin
	default:
		return RolePatient
	}
}

const promptCommon = "You are CareAssist, the hospital's virtual assistant. " +
	"Answer using only the information in the provided context and conversation. " +
	"If the context does not cover the question, say you don't have that information " +
	"and suggest contacting the front desk. Never invent medical advice, names, " +
	"prices, or schedules. Keep answers short and concrete."

var rolePrompts = map[Role]string{
	RolePatient: promptCommon + " You are talking to a patient. Be warm and reassuring, " +
		"avoid jargon, and explain procedures in plain language. For anything urgent, " +
		"tell them to call emergency services or visit the emergency department.",
	RoleVisitor: promptCommon + " You are talking to a visitor. Focus on practical " +
		"information: visiting hours, directions, parking, amenities, and patient " +
		"contact policies.",
	RoleStaff: promptCommon + " You are talking to a staff member. Be direct and " +
		"precise; internal procedures, extensions, and department details may be shared.",
	RoleAdmin: promptCommon + " You are talking to an administrator. You may summarize " +
		"operational information across departments and reference document sources.",
}

// systemPrompt returns the instruction block for the role.
func systemPrompt(role Role) string {
	if p, ok := rolePrompts[role]; ok {
		return p
	}
	return rolePrompts[RolePatient]
}
