// gatekeeper/controller/decision_controller.go
package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
	helper_util "github.com/dev-mohitbeniwal/echo/gatekeeper/util/helper"
)

// DefaultDecisionWindow is searched when the request names no range.
const DefaultDecisionWindow = 24 * time.Hour

type DecisionController struct {
	auditService audit.Service
	guard        gin.HandlerFunc
}

func NewDecisionController(auditService audit.Service, guard gin.HandlerFunc) *DecisionController {
	return &DecisionController{
		auditService: auditService,
		guard:        guard,
	}
}

// RegisterRoutes registers the API routes
func (dc *DecisionController) RegisterRoutes(r *gin.RouterGroup) {
	security := r.Group("/security")
	if dc.guard != nil {
		security.Use(dc.guard)
	}
	security.GET("/decisions", dc.ListDecisions)
}

// ListDecisions searches the decision log.
// Query parameters: from, to (RFC3339), subject, qname, allowed, limit, offset.
func (dc *DecisionController) ListDecisions(c *gin.Context) {
	from, to, err := helper_util.ParseRange(c.Query("from"), c.Query("to"), DefaultDecisionWindow, time.Now())
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid time range", err)
		return
	}
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	q := audit.DecisionQuery{
		From:    from,
		To:      to,
		Subject: c.Query("subject"),
		QName:   c.Query("qname"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := c.Query("allowed"); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid allowed filter", err)
			return
		}
		q.Allowed = &allowed
	}

	logs, err := dc.auditService.QueryDecisions(c.Request.Context(), q)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decisions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": logs, "limit": limit, "offset": offset})
}
