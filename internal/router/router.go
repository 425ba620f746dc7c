package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classloop/classloop-api/internal/config"
	"github.com/classloop/classloop-api/internal/handler"
	"github.com/classloop/classloop-api/internal/middleware"
	"github.com/classloop/classloop-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MembershipHandler *handler.MembershipHandler
	GroupHandler      *handler.GroupHandler
	AttendanceHandler *handler.AttendanceHandler
	ScoringHandler    *handler.ScoringHandler
	PostHandler       *handler.PostHandler
	PointsHandler     *handler.PointsHandler
	StandingsHandler  *handler.StandingsHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Course-scoped resources
	courses := api.Group("/courses/:courseID", jwtMiddleware)
	if deps.MembershipHandler != nil {
		deps.MembershipHandler.Register(courses)
	}
	if deps.GroupHandler != nil {
		deps.GroupHandler.Register(courses)
	}
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterCourseRoutes(courses)
	}
	if deps.ScoringHandler != nil {
		deps.ScoringHandler.RegisterCourseRoutes(courses)
	}
	if deps.StandingsHandler != nil {
		deps.StandingsHandler.Register(courses)
	}

	// Session-scoped attendance routes
	if deps.AttendanceHandler != nil {
		attendances := api.Group("/attendances", jwtMiddleware, middleware.RateLimit("attendance", 60, time.Minute))
		deps.AttendanceHandler.RegisterSessionRoutes(attendances)
	}

	// Assignment, answer and quiz routes
	if deps.ScoringHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.ScoringHandler.RegisterAssignmentRoutes(assignments)

		answers := api.Group("/answers", jwtMiddleware)
		deps.ScoringHandler.RegisterAnswerRoutes(answers)

		quizzes := api.Group("/quizzes", jwtMiddleware)
		deps.ScoringHandler.RegisterQuizRoutes(quizzes)
	}

	// Course feed and point ledger
	if deps.PostHandler != nil {
		posts := api.Group("/posts", jwtMiddleware, middleware.RateLimit("feed", 120, time.Minute))
		deps.PostHandler.Register(posts)
	}
	if deps.PointsHandler != nil {
		points := api.Group("/points", jwtMiddleware)
		deps.PointsHandler.Register(points)
	}
}
