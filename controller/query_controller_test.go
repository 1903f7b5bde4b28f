// gatekeeper/controller/query_controller_test.go
package controller_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/controller"
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	mock_service "github.com/dev-mohitbeniwal/echo/gatekeeper/test/service_mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestQueryController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQueryService := mock_service.NewMockIQueryService(ctrl)
	queryController := controller.NewQueryController(mockQueryService, nil)
	router := setupRouter()
	queryController.RegisterRoutes(router.Group("/"))

	post := func(body string, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/query", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("ExecuteQuery_Success", func(t *testing.T) {
		mockQueryService.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req model.QueryRequest, sreq *pdp_model.SecurityRequest) (*model.QueryResult, error) {
				assert.Equal(t, "YADA select", req.QName)
				assert.Equal(t, []string{"1"}, req.Params)
				v, ok := sreq.Headers.Get("Authorization")
				assert.True(t, ok)
				assert.Equal(t, "Bearer abc", v)
				return &model.QueryResult{QName: req.QName, Count: 1, Rows: []map[string]any{{"id": 1}}}, nil
			})

		w := post(`{"qname":"YADA select","params":["1"]}`, map[string]string{"Authorization": "Bearer abc"})

		require.Equal(t, http.StatusOK, w.Code)
		var result model.QueryResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Count)
	})

	t.Run("ExecuteQuery_Failure_Unauthorized", func(t *testing.T) {
		mockQueryService.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, sec_errors.NewSecurityError(sec_errors.KindGrant, "no grant", nil))

		w := post(`{"qname":"YADA select"}`, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("ExecuteQuery_Failure_NotFound", func(t *testing.T) {
		mockQueryService.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, sec_errors.ErrQueryNotFound)

		w := post(`{"qname":"missing"}`, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ExecuteQuery_Failure_InvalidRequest", func(t *testing.T) {
		mockQueryService.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, sec_errors.ErrInvalidQueryRequest)

		w := post(`{"qname":"q","params":["1"],"json":[{"a":"1"}]}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ExecuteQuery_Failure_BadJSON", func(t *testing.T) {
		w := post(`{"params":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ExecuteQuery_Failure_Internal", func(t *testing.T) {
		mockQueryService.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		w := post(`{"qname":"q"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("GetQuerySecurity_Success", func(t *testing.T) {
		mockQueryService.EXPECT().
			GetSecurity(gomock.Any(), "YADA select").
			Return(&model.QuerySecurity{QName: "YADA select", App: "YADA", GrantApp: "YADA", Protected: true}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/queries/YADA%20select/security", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"protected":true`)
	})

	t.Run("GetQuerySecurity_Failure_NotFound", func(t *testing.T) {
		mockQueryService.EXPECT().
			GetSecurity(gomock.Any(), "nope").
			Return(nil, sec_errors.ErrQueryNotFound)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/queries/nope/security", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueryController_InspectGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQueryService := mock_service.NewMockIQueryService(ctrl)
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	}
	router := setupRouter()
	controller.NewQueryController(mockQueryService, deny).RegisterRoutes(router.Group("/"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/queries/q/security", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
