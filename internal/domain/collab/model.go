// internal/domain/collab/model.go

package collab

import (
	"time"

	"rendezvous/internal/domain/geo"
)

// Contribution records one member's item
type Contribution struct {
	By   string    `json:"by"`
	Item string    `json:"item"`
	At   time.Time `json:"at"`
}

// Session is a contribution barrier over a fixed member set. Pending only
// shrinks; every member is either pending or has exactly one contribution.
type Session struct {
	ID            string         `json:"id"`
	Pending       []string       `json:"pending"`
	Contributions []Contribution `json:"contributions"`
	Location      geo.Location   `json:"location"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// IsComplete is true once no member is pending
func (s Session) IsComplete() bool {
	return len(s.Pending) == 0
}

// IsPending reports whether user still owes a contribution
func (s Session) IsPending(user string) bool {
	for _, p := range s.Pending {
		if p == user {
			return true
		}
	}
	return false
}

// HasContributed reports whether user already contributed
func (s Session) HasContributed(user string) bool {
	for _, c := range s.Contributions {
		if c.By == user {
			return true
		}
	}
	return false
}

// Members returns contributors in contribution order followed by pending members
func (s Session) Members() []string {
	members := make([]string, 0, len(s.Pending)+len(s.Contributions))
	for _, c := range s.Contributions {
		members = append(members, c.By)
	}
	return append(members, s.Pending...)
}

// HasMemberSet reports whether the session's members are exactly users
func (s Session) HasMemberSet(users []string) bool {
	members := s.Members()
	if len(members) != len(users) {
		return false
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	for _, u := range users {
		if _, ok := set[u]; !ok {
			return false
		}
	}
	return true
}

// Items returns contributed items in contribution order
func (s Session) Items() []string {
	items := make([]string, len(s.Contributions))
	for i, c := range s.Contributions {
		items[i] = c.Item
	}
	return items
}
