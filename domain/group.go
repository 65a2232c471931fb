package domain

import "time"

// Group is a named set of participants with a single admin.
// Members are kept in join order: the slice drives both the
// persisted member list and admin succession.
type Group struct {
	Name      string
	Admin     string
	Members   []string
	CreatedAt time.Time
}

func NewGroup(name, admin string, at time.Time) *Group {
	return &Group{
		Name:      name,
		Admin:     admin,
		Members:   []string{admin},
		CreatedAt: at,
	}
}

func (g *Group) HasMember(name string) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}

// AddMember appends a participant. Callers must check HasMember first;
// duplicates are ignored here to keep the slice consistent.
func (g *Group) AddMember(name string) {
	if g.HasMember(name) {
		return
	}
	g.Members = append(g.Members, name)
}

// RemoveMember drops a participant and reassigns the admin role when
// the admin leaves. The earliest-joined remaining member becomes the
// new admin, which keeps succession deterministic. The returned name
// is non-empty only when such a handover happened.
func (g *Group) RemoveMember(name string) (newAdmin string) {
	for i, m := range g.Members {
		if m == name {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	if g.Admin == name && len(g.Members) > 0 {
		g.Admin = g.Members[0]
		newAdmin = g.Admin
	}
	return newAdmin
}

func (g *Group) Empty() bool {
	return len(g.Members) == 0
}

// GroupInfo is the persisted description of a group. As with ChatEntry,
// external tooling reads these files, so the field set is fixed.
type GroupInfo struct {
	GroupName   string   `json:"group_name"`
	Admin       string   `json:"admin"`
	Members     []string `json:"members"`
	CreatedDate string   `json:"created_date"`
}

func (g *Group) Info() GroupInfo {
	members := make([]string, len(g.Members))
	copy(members, g.Members)
	return GroupInfo{
		GroupName:   g.Name,
		Admin:       g.Admin,
		Members:     members,
		CreatedDate: g.CreatedAt.Format(TimestampLayout),
	}
}
