package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/api"
	"github.com/sahilchouksey/enrollment-api/config"
	"github.com/sahilchouksey/enrollment-api/database"
	"github.com/sahilchouksey/enrollment-api/router"
	"github.com/sahilchouksey/enrollment-api/services/cron"
	"github.com/sahilchouksey/enrollment-api/services/enrollment"
	"github.com/sahilchouksey/enrollment-api/services/notify"
	"github.com/sahilchouksey/enrollment-api/utils/cache"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err

	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	if getEnv.GO_ENV == "production" {
		log.SetLevel(log.LevelInfo)
	} else {
		log.SetLevel(log.LevelDebug)
	}

	// Initialize database connection
	store, err := database.Open(getEnv)
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Session store: Redis when configured, otherwise in-process
	var (
		sessions   enrollment.SessionStore
		sweeper    enrollment.Sweeper
		redisCache *cache.RedisCache
	)
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Warnf("Failed to connect to Redis: %v. Falling back to in-memory sessions.", err)
		}
	}
	if redisCache != nil {
		sessions = enrollment.NewRedisSessionStore(redisCache, getEnv.SESSION_TTL)
	} else {
		memory := enrollment.NewMemorySessionStore(getEnv.SESSION_TTL)
		sessions, sweeper = memory, memory
	}

	// Confirmation notifiers
	var notifiers notify.Multi
	if getEnv.WEBHOOK_URL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(getEnv.WEBHOOK_URL))
	}
	var kafkaNotifier *notify.KafkaNotifier
	if len(getEnv.KAFKA_BROKERS) > 0 {
		kafkaNotifier = notify.NewKafkaNotifier(getEnv.KAFKA_BROKERS, getEnv.KAFKA_TOPIC)
		notifiers = append(notifiers, kafkaNotifier)
	}

	manager := enrollment.NewManager(store, sessions, notifiers, enrollment.Config{
		SchedulingURL: getEnv.SCHEDULING_WIDGET_URL,
		ResetDelay:    getEnv.SUCCESS_RESET_DELAY,
	})

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		db, _ := store.GetDB().(*gorm.DB) // job runs are recorded only with the GORM store
		cronManager = cron.NewCronManager(db, store, sweeper)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing DB, Redis and Kafka and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if kafkaNotifier != nil {
			if err := kafkaNotifier.Close(); err != nil {
				log.Warnf("Failed to close Kafka writer: %v", err)
			}
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes
	routeOptions := router.Options{
		AllowedOrigins: getEnv.ALLOWED_ORIGINS,
		SessionTTL:     getEnv.SESSION_TTL,
		SecureCookie:   getEnv.GO_ENV == "production",
	}
	if redisCache != nil {
		routeOptions.Redis = redisCache
	}
	router.SetupRoutes(app, store, manager, routeOptions)

	// Shut down on SIGINT/SIGTERM so the deferred cleanup runs
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Errorf("Server shutdown failed: %v", err)
		}
	}()

	// Get the PORT & Start the Server
	return server.Run()

}
