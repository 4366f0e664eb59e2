package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

// domainErrors maps service sentinels to HTTP errors. Anything not listed
// is reported as a generic 500.
var domainErrors = []struct {
	err    error
	appErr func(string) *response.AppError
}{
	{services.ErrWorkspaceNotFound, response.NewNotFound},
	{services.ErrAccessDenied, response.NewForbidden},
	{services.ErrInsufficientRole, response.NewForbidden},
	{services.ErrUserNotFound, response.NewNotFound},
	{services.ErrEmailTaken, response.NewConflict},
	{services.ErrInvalidCredentials, response.NewUnauthorized},
	{services.ErrInvalidInput, response.NewBadRequest},
	{services.ErrMemberNotFound, response.NewNotFound},
	{services.ErrMemberExists, response.NewConflict},
	{services.ErrOwnerMembership, response.NewConflict},
	{services.ErrInvalidRole, response.NewBadRequest},
	{services.ErrNodeNotFound, response.NewNotFound},
	{services.ErrEdgeNotFound, response.NewNotFound},
	{services.ErrEdgeEndpoints, response.NewBadRequest},
	{services.ErrEdgeExists, response.NewConflict},
	{services.ErrAutoLinkDisabled, response.NewUnavailable},
}

func toAppError(err error) error {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.appErr(d.err.Error())
		}
	}
	return err
}

func fail(c *gin.Context, err error) {
	response.Error(c, toAppError(err))
}
