// gatekeeper/controller/query_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

type QueryController struct {
	queryService service.IQueryService
	inspectGuard gin.HandlerFunc
}

// NewQueryController builds the query endpoints. inspectGuard, when not nil,
// runs before the security inspection endpoint.
func NewQueryController(queryService service.IQueryService, inspectGuard gin.HandlerFunc) *QueryController {
	return &QueryController{
		queryService: queryService,
		inspectGuard: inspectGuard,
	}
}

// RegisterRoutes registers the API routes
func (qc *QueryController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/query", qc.ExecuteQuery)

	inspect := []gin.HandlerFunc{qc.GetQuerySecurity}
	if qc.inspectGuard != nil {
		inspect = append([]gin.HandlerFunc{qc.inspectGuard}, inspect...)
	}
	r.GET("/queries/:qname/security", inspect...)
}

// ExecuteQuery endpoint
func (qc *QueryController) ExecuteQuery(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid query request", err)
		return
	}

	result, err := qc.queryService.Execute(c.Request.Context(), req, util.SecurityRequest(c))
	if err != nil {
		switch {
		case errors.Is(err, sec_errors.ErrUnauthorized):
			util.RespondUnauthorized(c, err)
		case errors.Is(err, sec_errors.ErrQueryNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Query not found", err)
		case errors.Is(err, sec_errors.ErrInvalidQueryRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid query request", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Query execution failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetQuerySecurity endpoint
func (qc *QueryController) GetQuerySecurity(c *gin.Context) {
	qname := c.Param("qname")
	security, err := qc.queryService.GetSecurity(c.Request.Context(), qname)
	if err != nil {
		if errors.Is(err, sec_errors.ErrQueryNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Query not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to read query security", err)
		}
		return
	}

	c.JSON(http.StatusOK, security)
}
