package models

// Account is a registered user. Password is stored and compared as plain text.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}
