package creditsales

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/rbac"
	"gcdl-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	tm := auth.NewTokenManager("credit-sales-secret-credit-sales-secret", time.Hour)
	table := rbac.MustDefault()
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(testutil.Logger())})
	g := app.Group("/credit-sales", auth.JWTMiddleware(tm))
	g.Post("/", auth.RequirePermission(table, rbac.CreateCreditSale), RecordHandler(f.rec))
	g.Get("/", auth.RequirePermission(table, rbac.ViewCreditSales), ListHandler(f.rec))
	g.Patch("/:id/status", auth.RequirePermission(table, rbac.UpdateCreditSale), UpdateStatusHandler(f.rec))

	do := func(who auth.Identity, method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		token, _, err := tm.Generate(&models.User{ID: who.UserID, Role: who.Role, BranchID: who.BranchID})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	create := `{"buyer_name":"Nakato Sarah","national_id":"CM9001","location":"Nakawa",` +
		`"produce_id":1,"tonnage":1,"amount_due":200000,"due_date":"2026-05-01"}`
	assert.Equal(t, 201, do(f.agent, "POST", "/credit-sales", create))
	assert.Equal(t, 200, do(f.agent, "GET", "/credit-sales?status=pending", ""))
	assert.Equal(t, 400, do(f.agent, "GET", "/credit-sales?status=overdue", ""))

	assert.Equal(t, 403, do(f.agent, "PATCH", "/credit-sales/1/status", `{"status":"paid"}`))
	assert.Equal(t, 409, do(f.manager, "PATCH", "/credit-sales/1/status", `{"status":"pending"}`))
	assert.Equal(t, 200, do(f.manager, "PATCH", "/credit-sales/1/status", `{"status":"paid"}`))
	assert.Equal(t, 409, do(f.manager, "PATCH", "/credit-sales/1/status", `{"status":"paid"}`))
}
