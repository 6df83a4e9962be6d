package domain

// TeamSpace is a private sub-area bound to one external team.
// Width/Height are informational; the server does not enforce geometric
// containment, membership is what gates audio.
type TeamSpace struct {
	Team   TeamID
	Name   string
	Image  string
	X, Y   float64 // center
	Width  float64
	Height float64
	Roster map[SessionID]struct{}
}

func NewTeamSpace(team TeamID, name, image string, x, y, w, h float64) *TeamSpace {
	return &TeamSpace{
		Team:   team,
		Name:   name,
		Image:  image,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
		Roster: make(map[SessionID]struct{}),
	}
}
