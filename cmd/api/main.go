//	@title			Talmud Media API
//	@version		1.0
//	@description	Upload, list and delete the audio recordings and images of the Talmud study site.
//
//	@host		localhost:3000
//	@BasePath	/

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/talmud/media-service/internal/config"
	"github.com/talmud/media-service/internal/file"
	"github.com/talmud/media-service/internal/media"
	"github.com/talmud/media-service/internal/server"
	"github.com/talmud/media-service/internal/storage"

	_ "github.com/talmud/media-service/docs/swagger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backend, static, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	observer, err := storage.NewPrometheusObserver("media_storage", reg)
	if err != nil {
		log.Fatalf("storage metrics init failed: %v", err)
	}
	store := storage.Instrument(backend, observer)

	// Wire dependencies: storage → service → handler
	fileSvc := file.NewService(store, media.NewValidator(cfg.MaxUploadBytes), cfg.UploadTimeout)
	fileHandler := file.NewHandler(fileSvc, cfg.MaxBodyBytes, cfg.ExposeBackendErrors)

	r := server.NewRouter(server.Options{
		Files:   fileHandler,
		Static:  static,
		Driver:  cfg.StorageDriver,
		Metrics: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.ReadTimeout, srv.WriteTimeout = serverTimeouts(cfg.UploadTimeout)

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, storage=%s)", cfg.Port, cfg.AppEnv, cfg.StorageDriver)
		log.Printf("health check at http://localhost:%s/api/health", cfg.Port)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// serverTimeouts derives the body read and response write deadlines from the
// upload timeout. A zero upload timeout disables both so large uploads are
// never cut off by the server.
func serverTimeouts(upload time.Duration) (read, write time.Duration) {
	if upload <= 0 {
		return 0, 0
	}
	return upload + 15*time.Second, upload + 30*time.Second
}

// openStorage builds the backend selected by STORAGE_DRIVER. The static
// server is nil unless files are kept on local disk.
func openStorage(cfg *config.Config) (storage.Storage, storage.StaticServer, error) {
	switch cfg.StorageDriver {
	case config.DriverLocal:
		local, err := storage.NewLocalStorage(cfg.UploadsDir, cfg.UploadsURLPrefix)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	case config.DriverMinio:
		remote, err := storage.NewMinioStorage(storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			Namespace:  cfg.StorageNamespace,
			UseSSL:     cfg.StorageUseSSL,
			ListLimit:  cfg.ListLimit,
		})
		if err != nil {
			return nil, nil, err
		}
		return remote, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
