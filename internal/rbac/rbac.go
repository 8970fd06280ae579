package rbac

type Role string

const (
	RoleMember Role = "member"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleAuthor, RoleAdmin:
		return Role(role)
	default:
		return RoleMember
	}
}

// IsElevated reports whether the role may override ownership checks.
func IsElevated(role Role) bool {
	return role == RoleAdmin || role == RoleAuthor
}

// CanMutate decides edit/delete rights on a comment or forum reply: the
// author of the node, or any elevated role.
func CanMutate(authorID, callerID string, role Role) bool {
	if callerID == "" {
		return false
	}
	return authorID == callerID || IsElevated(role)
}

// CanClose decides whether a forum post may be closed. Only its author may
// close it; elevated roles get no override here.
func CanClose(authorID, callerID string) bool {
	return callerID != "" && authorID == callerID
}
