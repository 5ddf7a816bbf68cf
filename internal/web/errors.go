package web

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/bigredeye/catalystx/api"
)

var (
	errNotAuthenticated = errors.New("Not authenticated")
	errForbidden        = errors.New("You do not have access to this resource")
	errInternal         = errors.New("Internal server error")
)

func abortWithStatus(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, &api.Status{Ok: false, Error: err.Error()})
}
