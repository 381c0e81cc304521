package core

type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
