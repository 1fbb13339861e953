package model

// UserProfile is the authenticated user's profile as returned by /users/me.
type UserProfile struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
