package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// BadRequestError represents a request the server could not act on:
// malformed bodies, missing required fields, invalid identifiers.
type BadRequestError struct {
	Reason string
}

func (e BadRequestError) Error() string {
	if e.Reason == "" {
		return "bad request"
	}
	return e.Reason
}

func (e BadRequestError) Is(target error) bool {
	_, ok := target.(BadRequestError)
	if ok {
		return true
	}
	_, ok = target.(*BadRequestError)
	return ok
}

var ErrBadRequest = BadRequestError{}

// DiscoveryError is raised when a remote identity URL cannot be resolved to
// a core profile. Status is the HTTP status the failure maps to.
type DiscoveryError struct {
	Reason string
	Status int
}

func (e DiscoveryError) Error() string {
	return fmt.Sprintf("could not discover entity (%s)", e.Reason)
}

func (e DiscoveryError) Is(target error) bool {
	_, ok := target.(DiscoveryError)
	if ok {
		return true
	}
	_, ok = target.(*DiscoveryError)
	return ok
}

var ErrDiscovery = DiscoveryError{}

// NotificationError is raised when a follower's notification endpoint did
// not answer 200 during the follow handshake.
type NotificationError struct {
	Identity string
	Path     string
	Status   int
}

func (e NotificationError) Error() string {
	return fmt.Sprintf("could not notify %s/%s (status %d)", e.Identity, e.Path, e.Status)
}

func (e NotificationError) Is(target error) bool {
	_, ok := target.(NotificationError)
	if ok {
		return true
	}
	_, ok = target.(*NotificationError)
	return ok
}

var ErrNotification = NotificationError{}

// NotUniqueError represents a storage uniqueness violation.
type NotUniqueError struct {
	Resource string
}

func (e NotUniqueError) Error() string {
	if e.Resource == "" {
		return "not unique"
	}
	return fmt.Sprintf("%s is not unique", e.Resource)
}

func (e NotUniqueError) Is(target error) bool {
	_, ok := target.(NotUniqueError)
	if ok {
		return true
	}
	_, ok = target.(*NotUniqueError)
	return ok
}

var ErrNotUnique = NotUniqueError{}

// ValidationError represents a field constraint violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}
