package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/classloop/classloop-api/internal/config"
	"github.com/classloop/classloop-api/internal/database"
	"github.com/classloop/classloop-api/internal/handler"
	"github.com/classloop/classloop-api/internal/middleware"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
	"github.com/classloop/classloop-api/internal/router"
	"github.com/classloop/classloop-api/internal/service"
	cloud "github.com/classloop/classloop-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseMember{},
		&models.CourseGroup{},
		&models.CourseGroupMember{},
		&models.CourseAttendance{},
		&models.AttendanceDetail{},
		&models.Assignment{},
		&models.AssignmentAnswer{},
		&models.Question{},
		&models.CourseQuizResult{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
		&models.PointTransaction{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events disabled")
		} else {
			defer natsConn.Close()
		}
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewEventPublisher(natsConn, logger)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	memberRepo := repository.NewCourseMemberRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	postRepo := repository.NewPostRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	membershipService := service.NewMembershipService(memberRepo, courseRepo, validate, logger)
	standingsService := service.NewStandingsService(memberRepo, attendanceRepo, courseRepo, membershipService, redisClient, cfg.StandingsCacheTTL, logger)
	groupService := service.NewGroupService(groupRepo, memberRepo, courseRepo, membershipService, events, validate, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, memberRepo, membershipService, events, standingsService, validate, logger)
	scoringService := service.NewScoringService(assignmentRepo, quizRepo, memberRepo, membershipService, events, standingsService, uploader, validate, logger)
	postService := service.NewPostService(postRepo, membershipService, uploader, validate, logger)
	pointsService := service.NewPointsService(ledgerRepo, postRepo, userRepo, events, logger)

	membershipHandler := handler.NewMembershipHandler(membershipService, logger)
	groupHandler := handler.NewGroupHandler(groupService, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, logger)
	scoringHandler := handler.NewScoringHandler(scoringService, logger)
	postHandler := handler.NewPostHandler(postService, pointsService, logger)
	pointsHandler := handler.NewPointsHandler(pointsService, logger)
	standingsHandler := handler.NewStandingsHandler(standingsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MembershipHandler: membershipHandler,
		GroupHandler:      groupHandler,
		AttendanceHandler: attendanceHandler,
		ScoringHandler:    scoringHandler,
		PostHandler:       postHandler,
		PointsHandler:     pointsHandler,
		StandingsHandler:  standingsHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
