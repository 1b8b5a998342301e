package access

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why an evaluation was denied.
type Kind int

const (
	AuthenticationRequired Kind = iota
	InvalidIdentifier
	NotFound
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case AuthenticationRequired:
		return "authentication_required"
	case InvalidIdentifier:
		return "invalid_identifier"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the HTTP status reported for the kind.
func (k Kind) Status() int {
	switch k {
	case AuthenticationRequired:
		return http.StatusUnauthorized
	case InvalidIdentifier:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

// Denial is returned by every evaluation that does not allow the action. The
// message is safe to show to the caller.
type Denial struct {
	Kind    Kind
	Message string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("access denied (%s): %s", d.Kind, d.Message)
}

func (d *Denial) Status() int {
	return d.Kind.Status()
}

// AsDenial unwraps err into a *Denial when it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func deny(kind Kind, msg string) *Denial {
	return &Denial{Kind: kind, Message: msg}
}

var (
	errUnauthenticated = deny(AuthenticationRequired, "authentication failed")
	errNoPermission    = deny(Forbidden, "you do not have permission to perform this action")
)

func invalidID(name string) *Denial {
	return deny(InvalidIdentifier, "valid "+name+" must be provided")
}

func notFound(entity string) *Denial {
	return deny(NotFound, entity+" not found")
}

var (
	errModuleNotFound    = deny(InvalidIdentifier, "module not found")
	errListScopeMissing  = deny(InvalidIdentifier, "either courseId or moduleId must be provided")
	errQuizWithoutCourse = deny(InvalidIdentifier, "quiz does not belong to any course")
)
