package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"adpilot/internal/ai"
	"adpilot/internal/amazon"
	"adpilot/internal/api"
	"adpilot/internal/config"
	"adpilot/internal/database"
	"adpilot/internal/features/budget"
	"adpilot/internal/features/engine"
	"adpilot/internal/features/execlog"
	"adpilot/internal/features/executor"
	"adpilot/internal/features/performance"
	"adpilot/internal/features/rule"
	"adpilot/internal/features/schedule"
	"adpilot/internal/features/throttle"
	"adpilot/internal/logger"
	"adpilot/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// StartCron wires the engine onto a cron runner: the rule scheduler
// ticks every minute, and boosted budgets are restored just before
// midnight. Stragglers from a missed night are swept the next run.
func StartCron(lc fx.Lifecycle, scheduler *engine.Scheduler, reversion budget.ReversionService, zlog *zap.Logger) {
	runner := cron.New()

	if _, err := runner.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		scheduler.Tick(ctx)
	}); err != nil {
		zlog.Fatal("registering scheduler tick", zap.Error(err))
	}

	if _, err := runner.AddFunc("55 23 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		now := time.Now()
		for _, date := range []time.Time{now.AddDate(0, 0, -1), now} {
			if err := reversion.RevertForDate(ctx, date); err != nil {
				zlog.Error("budget reversion failed", zap.Error(err))
			}
		}
	}); err != nil {
		zlog.Fatal("registering budget reversion", zap.Error(err))
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runner.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := runner.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Databases
			database.NewDatabase,
			database.NewReportDatabase,

			// External clients
			amazon.NewClient,
			ai.NewClient,

			// Initialize Repository
			rule.NewRuleRepository,
			throttle.NewThrottleRepository,
			budget.NewOverrideRepository,
			execlog.NewLogRepository,
			schedule.NewScheduleRepository,

			// Performance data plane
			performance.NewReportSource,
			performance.NewStreamSource,
			performance.NewReconciler,

			// Services
			rule.NewRuleService,
			budget.NewReversionService,
			executor.NewExecutor,
			engine.NewService,
			engine.NewScheduler,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s *engine.Service) rule.RunTrigger { return s },
			func(r *performance.Reconciler) engine.PerformanceSource { return r },

			// Initialize Controller
			rule.NewRuleController,
			execlog.NewLogController,

			// Initialize API Routes
			AsRoute(rule.NewRuleApi),
			AsRoute(execlog.NewLogApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartCron,
		),
	)

	app.Run()
}
