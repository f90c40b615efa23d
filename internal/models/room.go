package models

// Room holds the static identity of a physical meeting room
type Room struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building,omitempty"`
	Floor    string `json:"floor,omitempty"`
	Capacity int    `json:"capacity"`
}
