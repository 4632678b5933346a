package domain

// User is an anonymous chat identity. It is created by the client and never
// changes afterwards.
type User struct {
	ID       string `json:"id" validate:"required,max=128"`
	Username string `json:"username" validate:"required,max=64"`
}
