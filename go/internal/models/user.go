package models

// Member represents a participant of a room as reported by member_update.
type Member struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	IsOwner  bool   `json:"is_owner"`
}

// Balance is the currency held by the current user.
type Balance struct {
	Balance int `json:"balance"`
}
