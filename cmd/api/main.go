package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/davidfesteban/lazygallery/internal/config"
	"github.com/davidfesteban/lazygallery/internal/handlers"
	"github.com/davidfesteban/lazygallery/internal/middleware"
	"github.com/davidfesteban/lazygallery/internal/models"
	"github.com/davidfesteban/lazygallery/internal/pkg/thumbnail"
	"github.com/davidfesteban/lazygallery/internal/services"
)

func main() {
	// Load environment variables; a missing .env file is fine
	_ = godotenv.Load()

	cfg := config.New()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	// Metadata store
	db, err := models.InitDB(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mongodb")
	}
	if err := models.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	// Object store and buckets
	objects, err := services.NewMinioStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object store client")
	}
	for _, bucket := range []string{cfg.BucketMedia, cfg.BucketThumbnails, cfg.BucketArchives} {
		if err := objects.EnsureBucket(ctx, bucket); err != nil {
			log.Fatal().Err(err).Str("bucket", bucket).Msg("failed to ensure bucket")
		}
	}

	// Services
	store := services.NewMongoStore(db)
	galleryService := services.NewGalleryService(store, cfg, log)
	thumbs := thumbnail.NewBuilder(cfg.ThumbnailWidth, cfg.ThumbnailHeight, cfg.ThumbnailQuality)
	mediaService := services.NewMediaService(objects, store, galleryService, thumbs, cfg, log)

	// Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg))

	galleryHandler := handlers.NewGalleryHandler(galleryService)
	mediaHandler := handlers.NewMediaHandler(mediaService, cfg)
	sharedHandler := handlers.NewSharedHandler(mediaService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		api.POST("/galleries", galleryHandler.Create)
		api.GET("/galleries/:galleryId", galleryHandler.Get)
		api.PATCH("/galleries/:galleryId/sharing", galleryHandler.UpdateSharing)

		api.GET("/galleries/:galleryId/media", mediaHandler.List)
		api.POST("/galleries/:galleryId/upload", mediaHandler.Upload)
		api.DELETE("/galleries/:galleryId/media/:id", mediaHandler.Delete)
		api.PATCH("/galleries/:galleryId/media/:id/sharing", mediaHandler.UpdateSharing)
		api.GET("/galleries/:galleryId/files/original/:id", mediaHandler.GetOriginal)
		api.GET("/galleries/:galleryId/files/preview/:id", mediaHandler.GetPreview)
		api.GET("/galleries/:galleryId/download", mediaHandler.DownloadArchive)

		api.GET("/shared/:shareSlug/media", sharedHandler.List)
		api.GET("/shared/:shareSlug/files/original/:id", sharedHandler.GetOriginal)
		api.GET("/shared/:shareSlug/files/preview/:id", sharedHandler.GetPreview)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
