package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"duewatch/api"
	"duewatch/database"
	"duewatch/integrations"
	"duewatch/internal/monitor"
	"duewatch/internal/store"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		zap.L().Fatal("Error reading config file", zap.Error(err))
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "duewatch.db"
	}
	db := database.Init(dbPath)
	sqlDB, _ := db.DB()

	port := viper.GetString("server.port")
	if port == "" {
		port = "8080"
	}

	boardID := viper.GetString("trello.board_id")
	if boardID == "" {
		zap.L().Fatal("trello.board_id is not configured")
	}

	trelloClient := integrations.NewTrelloClient(
		viper.GetString("trello.api_key"),
		viper.GetString("trello.api_token"),
		boardID,
	)

	pollMinutes := viper.GetFloat64("monitor.poll_interval_minutes")
	if pollMinutes <= 0 {
		pollMinutes = 1
	}

	cardStore := store.NewCardStore(db)
	commentStore := store.NewCommentStore(db)
	reminderStore := store.NewReminderStore(db)

	mon := monitor.New(trelloClient, cardStore, commentStore, reminderStore, monitor.Config{
		BoardID:      boardID,
		PollInterval: time.Duration(pollMinutes * float64(time.Minute)),
	})

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	mon.Start(monitorCtx)

	router := gin.Default()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{
		DB:        db,
		Cards:     cardStore,
		Comments:  commentStore,
		Reminders: reminderStore,
		Monitor:   mon,
	}
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/reminders", apiHandler.ListRemindersHandler)
		apiGroup.POST("/reminders/:id/read", apiHandler.MarkReminderReadHandler)
		apiGroup.GET("/cards", apiHandler.ListCardsHandler)
		apiGroup.GET("/cards/:id", apiHandler.GetCardHandler)
		apiGroup.GET("/cards/:id/comments", apiHandler.ListCardCommentsHandler)
		apiGroup.GET("/dashboard", apiHandler.DashboardDataHandler)
		apiGroup.POST("/sync", apiHandler.SyncHandler)
		apiGroup.GET("/health", apiHandler.HealthCheckHandler)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		stopMonitor()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		if sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Error("Error closing database", zap.Error(err))
			} else {
				zap.L().Info("Database connection closed.")
			}
		}
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
}
