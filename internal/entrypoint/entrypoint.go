package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/knowledgehub/internal/audit"
	"github.com/mrlokans/knowledgehub/internal/config"
	"github.com/mrlokans/knowledgehub/internal/database"
	auditRepo "github.com/mrlokans/knowledgehub/internal/database/audit"
	http_controllers "github.com/mrlokans/knowledgehub/internal/http"
	"github.com/mrlokans/knowledgehub/internal/importers"
	"github.com/mrlokans/knowledgehub/internal/scheduler"
	"github.com/mrlokans/knowledgehub/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT; SIGKILL can't be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting knowledgehub v%s", version)

	limits := cfg.Import.Limits()
	log.Printf("[IMPORT] Limits: max file %d bytes, parse timeout %s", limits.MaxFileSize, limits.ParseTimeout)

	routerCfg := http_controllers.RouterConfig{
		Importer: importers.NewService(limits),
		Version:  version,
	}

	var (
		db             *database.Database
		auditService   *audit.Service
		taskClient     *tasks.Client
		cleanup        *scheduler.AuditCleanupScheduler
		backgroundStop context.CancelFunc
	)

	if cfg.Audit.Enabled {
		var err error
		db, err = database.NewDatabase(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}()

		auditService = audit.NewService(auditRepo.NewRepository(db.DB))
		routerCfg.Database = db
		routerCfg.AuditService = auditService
	} else {
		log.Printf("[AUDIT] Import audit trail disabled")
	}

	if auditService != nil && cfg.Tasks.Enabled {
		var err error
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewPruneImportAuditQueue(auditService))

		var ctx context.Context
		ctx, backgroundStop = context.WithCancel(context.Background())
		taskClient.Start(ctx)

		cleanup = scheduler.NewAuditCleanupScheduler(cfg.Audit.CleanupSchedule, tasks.PruneImportAuditTask{
			RetentionDays:         cfg.Audit.RetentionDays,
			RejectedRetentionDays: cfg.Audit.RejectedDays,
		}, taskClient)
		if err := cleanup.Start(ctx); err != nil {
			log.Printf("WARNING: audit cleanup scheduler not started: %v", err)
		}
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if cleanup != nil {
			cleanup.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		if backgroundStop != nil {
			backgroundStop()
		}
		if auditService != nil {
			auditService.Wait()
		}
	}

	Serve(router, cfg, onShutdown)
}
