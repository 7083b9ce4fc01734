package models

// Actor identifies the authenticated caller of a service operation. A nil
// *Actor means the request is anonymous. Services receive the actor rather
// than a bare user id so authorization decisions stay next to the data they
// protect.
type Actor struct {
	ID   uint
	Role Role
}

// IsAdmin reports whether the actor exists and holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Owns reports whether the actor is the user identified by userID.
func (a *Actor) Owns(userID uint) bool {
	return a != nil && a.ID == userID
}

// CanSee reports whether the actor may read content owned by ownerID with the
// given status. Active content is public; inactive content is visible only to
// its owner and to admins.
func (a *Actor) CanSee(ownerID uint, status Status) bool {
	if status == StatusActive {
		return true
	}
	return a.IsAdmin() || a.Owns(ownerID)
}
