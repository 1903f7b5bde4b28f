// gatekeeper/controller/lock_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

type LockController struct {
	lockService service.ILockService
	guard       gin.HandlerFunc
}

func NewLockController(lockService service.ILockService, guard gin.HandlerFunc) *LockController {
	return &LockController{
		lockService: lockService,
		guard:       guard,
	}
}

// RegisterRoutes registers the API routes
func (lc *LockController) RegisterRoutes(r *gin.RouterGroup) {
	locks := r.Group("/security/locks")
	if lc.guard != nil {
		locks.Use(lc.guard)
	}
	{
		locks.GET("", lc.ListLocks)
		locks.POST("", lc.AddLock)
		locks.DELETE("", lc.RemoveLock)
	}
}

// ListLocks endpoint. The target is required: ?target=<qname or app>.
func (lc *LockController) ListLocks(c *gin.Context) {
	records, err := lc.lockService.ListLocks(c.Request.Context(), c.Query("target"))
	if err != nil {
		if errors.Is(err, sec_errors.ErrInvalidLockData) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid lock data", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list locks", err)
		}
		return
	}

	c.JSON(http.StatusOK, records)
}

// AddLock endpoint
func (lc *LockController) AddLock(c *gin.Context) {
	var lock pdp_model.PolicyRecord
	if err := c.ShouldBindJSON(&lock); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid lock data", sec_errors.ErrInvalidLockData)
		return
	}
	userID, _ := util.GetUserIDFromContext(c)

	added, err := lc.lockService.AddLock(c.Request.Context(), lock, userID)
	if err != nil {
		switch {
		case errors.Is(err, sec_errors.ErrInvalidLockData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid lock data", err)
		case errors.Is(err, sec_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to add lock", sec_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, added)
}

// RemoveLock endpoint. The body names the lock exactly as AddLock does.
func (lc *LockController) RemoveLock(c *gin.Context) {
	var lock pdp_model.PolicyRecord
	if err := c.ShouldBindJSON(&lock); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid lock data", sec_errors.ErrInvalidLockData)
		return
	}
	userID, _ := util.GetUserIDFromContext(c)

	if err := lc.lockService.RemoveLock(c.Request.Context(), lock, userID); err != nil {
		switch {
		case errors.Is(err, sec_errors.ErrLockNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Lock not found", err)
		case errors.Is(err, sec_errors.ErrInvalidLockData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid lock data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to remove lock", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
