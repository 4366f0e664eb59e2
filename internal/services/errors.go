package services

import "errors"

// Domain errors. Handlers translate these into HTTP statuses in one place.
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrInsufficientRole  = errors.New("insufficient role")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")

	ErrMemberNotFound  = errors.New("member not found")
	ErrMemberExists    = errors.New("user is already a member")
	ErrOwnerMembership = errors.New("the owner cannot be a member")
	ErrInvalidRole     = errors.New("invalid role")

	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrEdgeEndpoints = errors.New("edge endpoints must be two distinct nodes of the workspace")
	ErrEdgeExists    = errors.New("edge already exists")

	ErrAutoLinkDisabled = errors.New("auto-linking is not configured")
)
