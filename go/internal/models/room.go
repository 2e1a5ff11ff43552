package models

// RoomSummary is one entry of the room list.
type RoomSummary struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsPrivate   bool   `json:"is_private"`
	IsFull      bool   `json:"is_full"`
	MemberCount int    `json:"member_count"`
	MaxMembers  int    `json:"max_members"`
	OwnerName   string `json:"owner_name"`
}
