package chat

import "github.com/Du7chy/Seedlings/go/internal/models"

// Roster is the member list of the room. Every update replaces it wholesale.
type Roster struct {
	count   int
	members []models.Member
}

// Replace swaps in a complete snapshot
func (r *Roster) Replace(count int, members []models.Member) {
	r.count = count
	r.members = append([]models.Member(nil), members...)
}

func (r *Roster) Count() int {
	return r.count
}

// Members returns a copy of the current snapshot
func (r *Roster) Members() []models.Member {
	out := make([]models.Member, len(r.members))
	copy(out, r.members)
	return out
}

// Owner returns the room owner if the snapshot has one
func (r *Roster) Owner() (models.Member, bool) {
	for _, m := range r.members {
		if m.IsOwner {
			return m, true
		}
	}
	return models.Member{}, false
}
