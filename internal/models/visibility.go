package models

// Actor is the authenticated caller as seen by authorization predicates.
type Actor struct {
	UserID   string
	Role     UserRole
	SchoolID *string
}

// InSchool reports whether the actor belongs to schoolID.
func (a Actor) InSchool(schoolID *string) bool {
	return a.SchoolID != nil && schoolID != nil && *a.SchoolID == *schoolID
}

// CanViewTalent decides whether t is reachable by a: super admins see everything, school
// admins see their school, GTK see their own submissions.
func CanViewTalent(a Actor, t *Talent) bool {
	if t == nil {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdminSekolah:
		return a.InSchool(t.SchoolID)
	case RoleGTK:
		return t.UserID == a.UserID
	}
	return false
}

// CanEditTalent allows mutation only by the submitter while the submission is pending.
func CanEditTalent(a Actor, t *Talent) bool {
	return t != nil && a.Role == RoleGTK && t.UserID == a.UserID && t.Status == TalentStatusPending
}

// CanReviewTalent reports whether a may decide t. Reviewers never decide their own submission.
func CanReviewTalent(a Actor, t *Talent) bool {
	if t == nil || t.UserID == a.UserID {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdminSekolah:
		return a.InSchool(t.SchoolID)
	}
	return false
}

// ScopeTalentFilter narrows f to what a may list.
func ScopeTalentFilter(a Actor, f TalentFilter) TalentFilter {
	switch a.Role {
	case RoleSuperAdmin:
	case RoleAdminSekolah:
		school := ""
		if a.SchoolID != nil {
			school = *a.SchoolID
		}
		f.SchoolID = &school
	default:
		uid := a.UserID
		f.UserID = &uid
	}
	return f
}

// CanManageUser reports whether a may create or update target. School admins manage only GTK
// accounts of their own school.
func CanManageUser(a Actor, target *User) bool {
	if target == nil {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdminSekolah:
		return target.Role == RoleGTK && a.InSchool(target.SchoolID)
	}
	return false
}

// CanViewSchool reports whether a may read school-level data for schoolID.
func CanViewSchool(a Actor, schoolID string) bool {
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdminSekolah:
		return a.SchoolID != nil && *a.SchoolID == schoolID
	}
	return false
}
