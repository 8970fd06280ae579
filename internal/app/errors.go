package app

import (
	"errors"
	"log"
	"net/http"

	"parenthub/internal/identity"
	"parenthub/internal/service"
	"parenthub/internal/util"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[service.Kind]int{
	service.KindUnauthenticated:  http.StatusUnauthorized,
	service.KindForbidden:        http.StatusForbidden,
	service.KindNotFound:         http.StatusNotFound,
	service.KindValidationFailed: http.StatusUnprocessableEntity,
	service.KindStoreUnavailable: http.StatusServiceUnavailable,
}

// respondError writes a service failure with the status matching its kind.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		log.Printf("[HTTP] unexpected error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		util.InternalServerError(c, "Internal server error")
		return
	}

	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if se.Kind == service.KindStoreUnavailable {
		// the underlying driver error stays in the log
		log.Printf("[HTTP] %s: %v", se.Op, se.Err)
	}
	util.ErrorResponse(c, status, se.Message, gin.H{"kind": se.Kind})
}

// bindBody decodes a write request. Anonymous callers get 401 before the body
// is looked at; field rules are left to the service.
func bindBody(c *gin.Context, req interface{}) bool {
	if _, ok := identity.FromContext(c.Request.Context()); !ok {
		respondError(c, &service.Error{
			Kind:    service.KindUnauthenticated,
			Op:      c.FullPath(),
			Message: "authentication required",
		})
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		util.BadRequest(c, err.Error())
		return false
	}
	return true
}
