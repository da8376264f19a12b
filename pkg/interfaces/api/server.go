package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/services/orchestration"
	"github.com/vsinha/mes/pkg/config"
)

// Server exposes the MES engines over HTTP under /api/v1
type Server struct {
	app    *fiber.App
	orch   *orchestration.Orchestrator
	logger logrus.FieldLogger
}

// NewServer builds the fiber app. A JWT secret is required.
func NewServer(orch *orchestration.Orchestrator, cfg config.HTTPConfig, log logrus.FieldLogger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set to serve the API")
	}

	s := &Server{orch: orch, logger: log.WithField("module", "api")}
	s.app = fiber.New(fiber.Config{
		AppName:      "mes",
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
		Output: logrusWriter{s.logger},
	}))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1", JWTProtected([]byte(cfg.JWTSecret)))
	s.setupRoutes(v1)
	return s, nil
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupRoutes(v1 fiber.Router) {
	ccps := v1.Group("/ccps")
	ccps.Get("/", s.listCCPs)
	ccps.Post("/", s.createCCP)
	ccps.Put("/:id", s.updateCCP)
	ccps.Delete("/:id", s.deactivateCCP)

	logs := v1.Group("/ccp-logs")
	logs.Get("/", s.listLogs)
	logs.Post("/", s.recordMeasurement)
	logs.Post("/:id/resolution", s.recordResolution)

	haccp := v1.Group("/haccp")
	haccp.Get("/alerts", s.alerts)
	haccp.Get("/compliance", s.complianceScore)
	haccp.Get("/report", s.complianceReport)

	v1.Post("/materials/allocate", s.allocate)
	v1.Get("/lots/:number/trace", s.traceLot)

	v1.Get("/costs", s.costSummary)
	v1.Get("/products/:code/cost", s.productCost)

	suppliers := v1.Group("/suppliers")
	suppliers.Get("/", s.listSuppliers)
	suppliers.Post("/", s.registerSupplier)
	suppliers.Get("/statistics", s.supplierStatistics)
	suppliers.Get("/:code/performance", s.supplierPerformance)
	suppliers.Get("/:code/risk", s.supplierRisk)
	suppliers.Post("/:code/audits", s.scheduleAudit)

	orders := v1.Group("/orders")
	orders.Get("/", s.listOrders)
	orders.Post("/", s.createOrder)
	orders.Get("/dashboard", s.dashboard)
	orders.Post("/:number/start", s.startOrder)
	orders.Post("/:number/complete", s.completeOrder)
	orders.Post("/:number/hold", s.holdOrder)
	orders.Post("/:number/resume", s.resumeOrder)
	orders.Post("/:number/cancel", s.cancelOrder)
	orders.Get("/:number/efficiency", s.orderEfficiency)
	orders.Get("/:number/trace", s.traceOrder)
}

type logrusWriter struct {
	logger logrus.FieldLogger
}

func (w logrusWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1]
	}
	return p
}
