// gatekeeper/controller/lock_controller_test.go
package controller_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/controller"
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	mock_service "github.com/dev-mohitbeniwal/echo/gatekeeper/test/service_mock"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

func TestLockController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLockService := mock_service.NewMockILockService(ctrl)
	asAdmin := func(c *gin.Context) { c.Set(util.ContextUserID, "root") }
	router := setupRouter()
	controller.NewLockController(mockLockService, asAdmin).RegisterRoutes(router.Group("/"))

	lock := pdp_model.PolicyRecord{Target: "YADA", Code: pdp_model.CodeAuthorization, Type: pdp_model.Whitelist, Ref: "admin"}
	body := `{"target":"YADA","policy":"A","type":"whitelist","qname":"admin"}`

	send := func(method, url, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("ListLocks_Success", func(t *testing.T) {
		mockLockService.EXPECT().ListLocks(gomock.Any(), "YADA").Return([]pdp_model.PolicyRecord{lock}, nil)

		w := send("GET", "/security/locks?target=YADA", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[`+body+`]`, w.Body.String())
	})

	t.Run("ListLocks_Failure_NoTarget", func(t *testing.T) {
		mockLockService.EXPECT().ListLocks(gomock.Any(), "").Return(nil, sec_errors.ErrInvalidLockData)

		w := send("GET", "/security/locks", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AddLock_Success", func(t *testing.T) {
		mockLockService.EXPECT().AddLock(gomock.Any(), lock, "root").Return(&lock, nil)

		w := send("POST", "/security/locks", body)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("AddLock_Failure_Invalid", func(t *testing.T) {
		mockLockService.EXPECT().AddLock(gomock.Any(), gomock.Any(), "root").Return(nil, sec_errors.ErrInvalidLockData)

		w := send("POST", "/security/locks", `{"target":"YADA","policy":"Q"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AddLock_Failure_Database", func(t *testing.T) {
		mockLockService.EXPECT().AddLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sec_errors.ErrDatabaseOperation)

		w := send("POST", "/security/locks", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("RemoveLock_Success", func(t *testing.T) {
		mockLockService.EXPECT().RemoveLock(gomock.Any(), lock, "root").Return(nil)

		w := send("DELETE", "/security/locks", body)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("RemoveLock_Failure_NotFound", func(t *testing.T) {
		mockLockService.EXPECT().RemoveLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(sec_errors.ErrLockNotFound)

		w := send("DELETE", "/security/locks", body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("RemoveLock_Failure_Internal", func(t *testing.T) {
		mockLockService.EXPECT().RemoveLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("boom"))

		w := send("DELETE", "/security/locks", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("RemoveLock_Failure_BadJSON", func(t *testing.T) {
		w := send("DELETE", "/security/locks", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
