package model

const (
	RoleFixer     = "fixer"
	RoleRequester = "requester"
)

// User is a participant profile as stored in the directory. Contact
// fields may be empty; the notification layer skips channels it has no
// destination for.
type User struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Whatsapp string
	Role     string
}
