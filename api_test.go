package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/andeansoft/procurement_backend/landedcost"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"record not found", utils.ErrorRecordNotFound, http.StatusNotFound},
		{"allocation input", fmt.Errorf("%w: no purchase items", landedcost.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"client error", errors.New("duplicate sku"), http.StatusBadRequest},
		{"mysql failure", &mysql.MySQLError{Number: 1205, Message: "lock wait timeout exceeded"}, http.StatusInternalServerError},
		{"wrapped mysql failure", fmt.Errorf("list products: %w", &mysql.MySQLError{Number: 1040}), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
