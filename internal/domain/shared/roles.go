package shared

import "github.com/google/uuid"

// Role is a participant role within a job or dispute
type Role string

const (
	RoleEmployer Role = "employer"
	RoleWorker   Role = "worker"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

// RoleSet maps participants to the roles they hold on one job or dispute
type RoleSet map[uuid.UUID][]Role

// Add grants role to user. Nil user ids are ignored.
func (rs RoleSet) Add(user uuid.UUID, role Role) {
	if user == uuid.Nil {
		return
	}
	for _, r := range rs[user] {
		if r == role {
			return
		}
	}
	rs[user] = append(rs[user], role)
}

// Has reports whether user holds any of the given roles
func (rs RoleSet) Has(user uuid.UUID, roles ...Role) bool {
	for _, held := range rs[user] {
		for _, r := range roles {
			if held == r {
				return true
			}
		}
	}
	return false
}

// Authorize is the single gate for role checks ahead of mutating calls
func Authorize(rs RoleSet, actor uuid.UUID, action string, allowed ...Role) error {
	if actor == uuid.Nil || !rs.Has(actor, allowed...) {
		return UnauthorizedError{ActorID: actor.String(), Action: action}
	}
	return nil
}
