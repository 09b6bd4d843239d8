package main

import (
	"gcdl-backend/internal/admin"
	"gcdl-backend/internal/audit"
	"gcdl-backend/internal/auth"
	"gcdl-backend/internal/config"
	"gcdl-backend/internal/creditsales"
	"gcdl-backend/internal/dashboard"
	"gcdl-backend/internal/database"
	"gcdl-backend/internal/notify"
	"gcdl-backend/internal/procurement"
	"gcdl-backend/internal/produce"
	"gcdl-backend/internal/rbac"
	"gcdl-backend/internal/sales"
	"gcdl-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type deps struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	db       *gorm.DB
	table    *rbac.Table
	tokens   *auth.TokenManager
	hub      *notify.Hub
	notifier notify.Broadcaster
}

func registerRoutes(app *fiber.App, d *deps) {
	allow := func(key rbac.Permission) fiber.Handler {
		return auth.RequirePermission(d.table, key)
	}

	ledger := stock.NewLedger(d.db)
	stockSvc := stock.NewService(d.db, ledger, d.notifier)
	saleRec := sales.NewRecorder(d.db, ledger, d.table, d.notifier)
	procRec := procurement.NewRecorder(d.db, ledger, d.notifier)
	creditRec := creditsales.NewRecorder(d.db, d.notifier)
	dash := dashboard.NewService(d.db)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/readyz", func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), d.db); err != nil {
			d.log.WithError(err).Warn("readiness check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Post("/auth/register", auth.OptionalJWT(d.tokens), auth.RegisterHandler(d.db, d.table))
	api.Post("/auth/login", auth.LoginHandler(d.db, d.tokens))

	api.Get("/ws", notify.UpgradeOnly(), auth.QueryTokenJWT(d.tokens), notify.WebsocketHandler(d.hub, d.log))

	protected := api.Group("", auth.JWTMiddleware(d.tokens))
	protected.Get("/auth/me", auth.MeHandler(d.db))

	branches := protected.Group("/branches")
	branches.Get("/", admin.ListBranchesHandler(d.db))
	branches.Get("/:id", admin.GetBranchHandler(d.db))
	branches.Post("/", allow(rbac.ManageBranches), admin.CreateBranchHandler(d.db, d.notifier))
	branches.Put("/:id", allow(rbac.ManageBranches), admin.UpdateBranchHandler(d.db, d.notifier))
	branches.Delete("/:id", allow(rbac.ManageBranches), admin.DeleteBranchHandler(d.db, d.notifier))

	prod := protected.Group("/produce")
	prod.Get("/", produce.ListProduceHandler(d.db))
	prod.Get("/types", produce.ListTypesHandler())
	prod.Get("/:id", produce.GetProduceHandler(d.db))
	prod.Post("/", allow(rbac.ManageProduce), produce.CreateProduceHandler(d.db, d.notifier))
	prod.Put("/:id", allow(rbac.ManageProduce), produce.UpdateProduceHandler(d.db, d.notifier))
	prod.Delete("/:id", allow(rbac.ManageProduce), produce.DeleteProduceHandler(d.db, d.notifier))

	st := protected.Group("/stock")
	st.Get("/", allow(rbac.ViewStock), stock.ListStockHandler(ledger))
	st.Post("/", allow(rbac.UpdateStock), stock.StockInHandler(stockSvc))
	st.Put("/", allow(rbac.UpdateStock), stock.SetStockHandler(stockSvc))
	st.Post("/reduce", allow(rbac.UpdateStock), stock.ReduceStockHandler(stockSvc))
	st.Get("/low", allow(rbac.ViewStock), stock.LowStockHandler(ledger, d.cfg.LowStockThreshold))
	st.Get("/branch/:branchId", allow(rbac.ViewStock), stock.BranchStockHandler(ledger))
	st.Get("/:id", allow(rbac.ViewStock), stock.GetStockHandler(ledger))
	st.Put("/:id", allow(rbac.UpdateStock), stock.SetStockByIDHandler(stockSvc))
	st.Delete("/:id", allow(rbac.DeleteStock), stock.DeleteStockHandler(stockSvc))

	sl := protected.Group("/sales")
	sl.Post("/", allow(rbac.CreateSale), sales.RecordSaleHandler(saleRec))
	sl.Get("/", allow(rbac.ViewOwnSales), sales.ListSalesHandler(saleRec))
	sl.Get("/agent/:id", allow(rbac.ViewOwnSales), sales.ListAgentSalesHandler(saleRec))
	sl.Get("/branch/:branchId", allow(rbac.ViewAllSales), sales.ListBranchSalesHandler(saleRec))
	sl.Get("/:id", allow(rbac.ViewOwnSales), sales.GetSaleHandler(saleRec))
	sl.Put("/:id", allow(rbac.UpdateSale), sales.UpdateSaleHandler(saleRec))
	sl.Delete("/:id", allow(rbac.DeleteSale), sales.VoidSaleHandler(saleRec))

	cs := protected.Group("/credit-sales")
	cs.Post("/", allow(rbac.CreateCreditSale), creditsales.RecordHandler(creditRec))
	cs.Get("/", allow(rbac.ViewCreditSales), creditsales.ListHandler(creditRec))
	cs.Get("/:id", allow(rbac.ViewCreditSales), creditsales.GetHandler(creditRec))
	cs.Patch("/:id/status", allow(rbac.UpdateCreditSale), creditsales.UpdateStatusHandler(creditRec))

	pr := protected.Group("/procurements")
	pr.Post("/", allow(rbac.CreateProcurement), procurement.RecordHandler(procRec))
	pr.Get("/", allow(rbac.ViewProcurement), procurement.ListHandler(procRec))
	pr.Get("/:id", allow(rbac.ViewProcurement), procurement.GetHandler(procRec))

	users := protected.Group("/users")
	users.Get("/", allow(rbac.ViewUsers), admin.ListUsersHandler(d.db))
	users.Get("/sales-agents", allow(rbac.ViewUsers), admin.ListSalesAgentsHandler(d.db))
	users.Get("/:id", allow(rbac.ViewUsers), admin.GetUserHandler(d.db))
	users.Patch("/:id", allow(rbac.ManageUsers), admin.UpdateUserHandler(d.db, d.notifier))
	users.Delete("/:id", allow(rbac.ManageUsers), admin.DeleteUserHandler(d.db, d.notifier))

	dg := protected.Group("/dashboard", allow(rbac.ViewDashboard))
	dg.Get("/sales-by-produce", dashboard.SalesByProduceHandler(dash))
	dg.Get("/stock-levels", dashboard.StockLevelsHandler(dash))
	dg.Get("/procurements-by-month", dashboard.ProcurementsByMonthHandler(dash))
	dg.Get("/credit-sales-by-status", dashboard.CreditSalesByStatusHandler(dash))
	dg.Get("/sales-report.xlsx", dashboard.SalesReportHandler(dash))

	protected.Get("/audit-logs", allow(rbac.ViewAuditLog), audit.ListAuditLogsHandler(d.db))
}
