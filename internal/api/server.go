package api

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/fundmatch-labs/fundmatch/internal/api/middleware"
	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/database"
	"github.com/fundmatch-labs/fundmatch/internal/services"
)

// APIServer exposes the settlement core over HTTP: distribution reads,
// reconciliation reports, pledge execution and payment webhooks.
type APIServer struct {
	app            *fiber.App
	db             *database.Database
	qf             services.QfService
	payments       services.PaymentService
	pledges        services.PledgeService
	reconciliation services.ReconciliationService
	jwtSecret      string
	port           string
}

// NewAPIServer wires the HTTP surface over the given services.
func NewAPIServer(
	db *database.Database,
	qf services.QfService,
	payments services.PaymentService,
	pledges services.PledgeService,
	reconciliation services.ReconciliationService,
	jwtSecret string,
) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Add middleware
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	server := &APIServer{
		app:            app,
		db:             db,
		qf:             qf,
		payments:       payments,
		pledges:        pledges,
		reconciliation: reconciliation,
		jwtSecret:      jwtSecret,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	requireUser := middleware.AuthMiddleware(middleware.AuthConfig{Secret: s.jwtSecret})
	requireAdmin := middleware.AuthMiddleware(middleware.AuthConfig{Secret: s.jwtSecret, RequireAdmin: true})

	// Matching distribution reads
	s.app.Get("/api/rounds/:id/qf-distribution", s.handleQfDistribution)
	s.app.Get("/api/rounds/:id/campaigns/:campaignId/qf-matching", s.handleQfMatching)
	s.app.Get("/api/rounds/:id/results", s.handleRoundResults)

	// Pledge execution
	s.app.Post("/api/pledges/register", requireUser, s.handleRegisterPledge)
	s.app.Post("/api/withdrawals/:id/execute", requireAdmin, s.handleExecuteWithdrawal)
	s.app.Get("/api/admin/pledges/unexecuted", requireAdmin, s.handleUnexecutedPledges)

	// Reconciliation
	s.app.Get("/api/admin/campaigns/:id/reconciliation", requireAdmin, s.handleReconciliation)

	// Payment provider webhook
	s.app.Post("/api/webhooks/payments", s.handlePaymentWebhook)

	// Health check
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
}

// Start starts the server on the configured port.
func (s *APIServer) Start(port string) error {
	s.port = port
	go func() {
		if err := s.app.Listen(fmt.Sprintf(":%s", port)); err != nil {
			log.Printf("Error starting API server: %v\n", err)
		}
	}()
	return nil
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *APIServer) App() *fiber.App {
	return s.app
}

// errorResponse maps the service error taxonomy onto HTTP statuses.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = fiber.StatusNotFound
	case apperrors.IsParameter(err):
		status = fiber.StatusBadRequest
	case apperrors.IsConflict(err):
		status = fiber.StatusConflict
	case apperrors.IsTimeout(err):
		status = fiber.StatusRequestTimeout
	case apperrors.IsUpstream(err):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
