package authz

import "fmt"

// Kind distinguishes role requirements from permission requirements.
type Kind string

const (
	KindRole       Kind = "role"
	KindPermission Kind = "permission"
)

// Requirement is the capability a request must hold.
type Requirement struct {
	Kind Kind
	Name string
}

func Role(name string) Requirement {
	return Requirement{Kind: KindRole, Name: name}
}

func Permission(name string) Requirement {
	return Requirement{Kind: KindPermission, Name: name}
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Name)
}

// Decision is the outcome of Authorize.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}
