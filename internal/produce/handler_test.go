package produce

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/models"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/rbac"
	"gcdl-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduceCatalog(t *testing.T) {
	db := testutil.NewDB(t)
	kampala := testutil.Branch(t, db, "Kampala")
	manager := testutil.User(t, db, "manager@gcdl.ug", models.RoleManager, &kampala.ID)
	agent := testutil.User(t, db, "agent@gcdl.ug", models.RoleSalesAgent, &kampala.ID)

	tm := auth.NewTokenManager("produce-secret-produce-secret-produce!", time.Hour)
	table := rbac.MustDefault()
	hub := notify.NewHub(testutil.Logger(), 4)
	events, cancel := hub.Subscribe()
	defer cancel()

	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(testutil.Logger())})
	g := app.Group("/produce", auth.JWTMiddleware(tm))
	g.Get("/", ListProduceHandler(db))
	g.Get("/types", ListTypesHandler())
	g.Get("/:id", GetProduceHandler(db))
	g.Post("/", auth.RequirePermission(table, rbac.ManageProduce), CreateProduceHandler(db, hub))
	g.Put("/:id", auth.RequirePermission(table, rbac.ManageProduce), UpdateProduceHandler(db, hub))
	g.Delete("/:id", auth.RequirePermission(table, rbac.ManageProduce), DeleteProduceHandler(db, hub))

	do := func(as models.User, method, path, body string) (int, map[string]any) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		token, _, err := tm.Generate(&as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out := map[string]any{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, _ := do(agent, "POST", "/produce", `{"name":"Maize","type":"grain maize"}`)
	assert.Equal(t, 403, status)

	status, body := do(manager, "POST", "/produce", `{"name":"Maize","type":"Grain Maize"}`)
	require.Equal(t, 201, status, body)
	assert.Equal(t, "grain maize", body["type"])
	ev := <-events
	assert.Equal(t, "produce", ev.Type)

	status, _ = do(manager, "POST", "/produce", `{"name":"maize","type":"beans"}`)
	assert.Equal(t, 409, status)

	status, _ = do(manager, "POST", "/produce", `{"name":"Coffee","type":"coffee"}`)
	assert.Equal(t, 400, status)

	status, body = do(agent, "GET", "/produce/types", "")
	require.Equal(t, 200, status)
	assert.Equal(t, float64(len(models.ProduceTypes)), body["total"])

	status, body = do(manager, "PUT", "/produce/1", `{"name":"White Maize"}`)
	require.Equal(t, 200, status)
	assert.Equal(t, "White Maize", body["name"])

	testutil.Stock(t, db, 1, kampala.ID, "1")
	status, _ = do(manager, "DELETE", "/produce/1", "")
	assert.Equal(t, 409, status)

	require.NoError(t, db.Where("produce_id = ?", 1).Delete(&models.Stock{}).Error)
	status, _ = do(manager, "DELETE", "/produce/1", "")
	assert.Equal(t, 200, status)

	status, body = do(agent, "GET", "/produce", "")
	require.Equal(t, 200, status)
	assert.Equal(t, float64(0), body["total"])
}
