// Command worker runs a build-engine worker pool: it leases build/update/
// tool/deploy Tasks off the shared record store and drives each through the
// Workflow Engine until completion, a suspension point, or a control signal.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/nexusforge/buildengine/pkg/blob"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/deploy"
	"github.com/nexusforge/buildengine/pkg/engine"
	"github.com/nexusforge/buildengine/pkg/executor"
	"github.com/nexusforge/buildengine/pkg/llmclient"
	"github.com/nexusforge/buildengine/pkg/multiagent"
	"github.com/nexusforge/buildengine/pkg/queue"
	"github.com/nexusforge/buildengine/pkg/store"
	"github.com/nexusforge/buildengine/pkg/workflowctx"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	podID := flag.String("pod-id", getEnv("POD_ID", ""), "Stable identity for this worker pool's lease ownership")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	if *podID == "" {
		*podID = "worker-" + uuid.NewString()[:8]
	}
	log := slog.With("pod_id", *podID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	connCfg, err := store.LoadConnConfigFromEnv()
	if err != nil {
		log.Error("failed to load database connection config", "error", err)
		os.Exit(1)
	}
	db, err := store.Connect(connCfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	recordStore := store.New(db)
	if err := recordStore.Migrate(); err != nil {
		log.Error("failed to migrate database schema", "error", err)
		os.Exit(1)
	}
	log.Info("connected to record store")

	invoker, err := llmclient.NewGRPCInvoker(cfg.LLM.Endpoint, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second, cfg.LLM.Insecure)
	if err != nil {
		log.Error("failed to dial LLM invoker", "endpoint", cfg.LLM.Endpoint, "error", err)
		os.Exit(1)
	}
	defer invoker.Close()

	blobStore, err := blob.New(cfg.Blob)
	if err != nil {
		log.Error("failed to dial blob store", "error", err)
		os.Exit(1)
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		log.Error("failed to ensure blob bucket exists", "error", err)
		os.Exit(1)
	}
	syncManager := blob.NewSyncManager(blobStore, blob.DefaultSyncConfig())

	assembler := workflowctx.NewAssembler()
	ctxManager := workflowctx.NewManager(recordStore, syncManager)

	stageExec := executor.New(invoker, cfg.StageCatalog, assembler, syncManager)
	iterator := multiagent.New(stageExec)

	eng := engine.New(recordStore, cfg.StageCatalog, assembler, ctxManager, stageExec, iterator)

	var deployer *deploy.Service
	if cfg.Deploy.DryRun {
		deployer = deploy.New(recordStore, deploy.NewFakeRuntimeClient(nil), deploy.Options{
			DryRun:        true,
			DefaultRegion: cfg.Deploy.DefaultRegion,
			BuildRoot:     cfg.Deploy.BuildRoot,
		})
		log.Info("deployment service running in dry-run mode")
	} else {
		runtimeClient, err := deploy.NewGRPCRuntimeClient(cfg.Deploy.Endpoint, time.Duration(cfg.Deploy.TimeoutSeconds)*time.Second, cfg.Deploy.Insecure)
		if err != nil {
			log.Error("failed to dial managed runtime", "endpoint", cfg.Deploy.Endpoint, "error", err)
			os.Exit(1)
		}
		defer runtimeClient.Close()
		deployer = deploy.New(recordStore, runtimeClient, deploy.Options{
			DefaultRegion: cfg.Deploy.DefaultRegion,
			BuildRoot:     cfg.Deploy.BuildRoot,
		})
	}

	taskExecutor := engine.NewTaskExecutor(eng, engine.WithDeployer(deployer))
	pool := queue.NewWorkerPool(*podID, recordStore, cfg.Queue, taskExecutor)

	if err := pool.Start(ctx); err != nil {
		log.Error("failed to start worker pool", "error", err)
		os.Exit(1)
	}
	log.Info("worker pool running", "worker_count", cfg.Queue.WorkerCount)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping worker pool")
	pool.Stop()
}
