package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/surveillance-core/internal/audit"
	"github.com/technosupport/surveillance-core/internal/config"
	"github.com/technosupport/surveillance-core/internal/crypto"
	"github.com/technosupport/surveillance-core/internal/data"
	"github.com/technosupport/surveillance-core/internal/metrics"
	"github.com/technosupport/surveillance-core/internal/surveillance/aiprovider"
	"github.com/technosupport/surveillance-core/internal/surveillance/bridge"
	"github.com/technosupport/surveillance-core/internal/surveillance/bus"
	"github.com/technosupport/surveillance-core/internal/surveillance/core"
	"github.com/technosupport/surveillance-core/internal/surveillance/costing"
	"github.com/technosupport/surveillance-core/internal/surveillance/entity"
	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
	"github.com/technosupport/surveillance-core/internal/surveillance/fanout"
	"github.com/technosupport/surveillance-core/internal/surveillance/ingest"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
	"github.com/technosupport/surveillance-core/internal/surveillance/queue"
	"github.com/technosupport/surveillance-core/internal/surveillance/secrets"
	"github.com/technosupport/surveillance-core/internal/surveillance/storage"
)

func main() {
	// Best-effort .env load for local/dev runs, same as the teacher's cmd/
	// binaries — silently ignored when absent (production configures via
	// real environment variables, never a checked-in .env).
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/default.yaml"
	}

	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	cfgMgr.StartWatcher(context.Background())
	cfg := cfgMgr.Current()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	defer db.Close()

	objStore := buildObjectStore(cfg.Storage)
	defer objStore.Close()

	busInstance := buildBus(cfg.Bus)

	cameras := &data.SurveillanceCameraModel{DB: db}
	if err := cameras.Refresh(context.Background()); err != nil {
		log.Printf("[ERROR] surveillance-core: initial camera load failed: %v", err)
	}

	ledger := data.AIUsageModel{DB: db}
	costLimits := func() costing.Limits {
		live := cfgMgr.Current()
		return costing.Limits{DailyLimitUSD: live.Costing.DailyLimitUSD, MonthlyLimitUSD: live.Costing.MonthlyLimitUSD}
	}
	var costCap costing.CapChecker = costing.NewDailyMonthlyCap(ledger, costLimits)
	costAlert := costing.NewThresholdAlert(ledger, costLimits, cfg.Costing.AlertFractions)

	var redisClient *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		// Multi-instance deployments share one cached cap verdict instead of
		// each instance re-querying the ledger on every dispatch.
		costCap = costing.NewCachedCap(costCap, redisClient, 10*time.Second)
	}

	if exportKey := os.Getenv("USAGE_EXPORT_SIGNING_KEY"); exportKey != "" {
		// Constructed so a future usage-export HTTP surface has a ready
		// verifier; no handler is wired to it in this out-of-scope-HTTP core.
		_ = costing.NewUsageExportAuth(exportKey)
	}

	entityStore := data.EntityModel{DB: db}
	entitySvc := entity.NewService(entityStore, nil)

	auditSvc := audit.NewService(db)

	apiKeys := apiKeysFromEnv()
	if keyring := crypto.NewKeyring(); keyring.LoadFromEnv() == nil {
		store := secrets.NewStore(keyring, data.ProviderKeyModel{DB: db})
		store.Audit = auditSvc
		for provider, key := range store.LoadAll(context.Background(), cfg.AI.ProviderOrder) {
			apiKeys[provider] = key // DB-stored, envelope-encrypted key wins over the env fallback
		}
	}

	chain := core.BuildChain(cfg.AI.ProviderOrder, apiKeys, usageLogAdapter{ledger: ledger})

	acquirer := &evidence.Acquirer{
		Snapshots: nil, // set per-camera-transport adapter at integration time; contract only here
		Dispatch:  chain,
		CostCap:   costCapAdapter{cap: costCap},
	}

	br := bridge.New(bridge.Config{
		MotionReset:       bridge.DefaultMotionReset,
		MaxMotion:         bridge.DefaultMaxMotion,
		OccupancyReset:    bridge.DefaultOccupancyReset,
		MaxOccupancy:      bridge.DefaultMaxOccupancy,
		VehicleReset:      bridge.DefaultVehicleReset,
		AnimalReset:       bridge.DefaultAnimalReset,
		PackageReset:      bridge.DefaultPackageReset,
		PerCarrierSensors: cfg.Bridge.PerCarrierSensors,
		BridgeName:        cfg.Bridge.BridgeName,
		Port:              cfg.Bridge.Port,
	}, nil)
	defer br.Shutdown()

	bridgeStore := bridge.NewStore(os.Getenv("BRIDGE_STATE_PATH"))
	if states, err := bridgeStore.Load(); err != nil {
		log.Printf("[ERROR] surveillance-core: bridge state restore failed: %v", err)
	} else {
		br.Restore(states)
	}
	defer func() {
		if err := bridgeStore.Save(br); err != nil {
			log.Printf("[ERROR] surveillance-core: bridge state save failed: %v", err)
		}
	}()

	diagnosticsHub := bridge.NewDiagnosticsHub()
	br.Hub = diagnosticsHub

	events := data.EventModel{DB: db}

	c := &core.Core{
		Acquirer: acquirer,
		Entities: entitySvc,
		Bridge:   br,
		Bus:      busInstance,
		Storage:  objStore,
		CostCap:  costCap,
		Cameras:  cameras,
		Events:   events,
		Fanout: fanout.Deps{
			Bridge:     br,
			Bus:        busInstance,
			Entities:   entitySvc,
			Embeddings: data.EventEmbeddingModel{DB: db},
			Storage:    objStore,
			CostAlert:  costAlert,
			Namer:      data.EntityNamerModel{DB: db},
			Baseline:   fanout.NewBaseline(data.ActivityBaselineModel{DB: db}),
			Persist:    data.EventEnrichmentModel{DB: db},
			Flags: fanout.Flags{
				FaceRecognitionEnabled:    cfg.Flags.FaceRecognitionEnabled,
				VehicleRecognitionEnabled: cfg.Flags.VehicleRecognitionEnabled,
			},
		},
	}

	pipeline := &core.Pipeline{Core: c}
	proc := queue.New(queue.Config{Capacity: cfg.Queue.Capacity, WorkerCount: cfg.Queue.WorkerCount}, pipeline)
	if redisClient != nil {
		// Shares the per-camera cooldown window across every instance behind
		// a load balancer instead of each tracking its own last-event time.
		proc.SetCooldown(queue.NewRedisCooldown(redisClient))
	}
	c.Queue = proc
	c.Ingest = ingest.NewHandler(cameras, proc)

	proc.Start()
	metrics.SetServiceUp(true)
	log.Println("surveillance-core: pipeline started")

	if natsURL := os.Getenv("INGEST_NATS_URL"); natsURL != "" {
		sub, err := startMockIngestSubscriber(natsURL, c.Ingest)
		if err != nil {
			log.Printf("[ERROR] surveillance-core: ingest subscriber disabled: %v", err)
		} else {
			defer sub.Unsubscribe()
		}
	}

	metricsSrv := metrics.StartServer(os.Getenv("METRICS_ADDR"), map[string]http.Handler{
		"/bridge/diagnostics/ws": http.HandlerFunc(diagnosticsHub.ServeWS),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("surveillance-core: shutting down")
	proc.Stop(5 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)
}

func buildObjectStore(cfg config.StorageConfig) storage.ObjectStore {
	if cfg.Backend == "minio" {
		st, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
			Bucket:        cfg.Minio.Bucket,
			UseSSL:        cfg.Minio.UseSSL,
			PublicBaseURL: cfg.Minio.PublicURL,
		})
		if err != nil {
			log.Fatalf("minio store init error: %v", err)
		}
		return st
	}
	st, err := storage.NewLocalStore(cfg.LocalPath, "")
	if err != nil {
		log.Fatalf("local store init error: %v", err)
	}
	return st
}

func buildBus(cfg config.BusConfig) *bus.Bus {
	switch cfg.Transport {
	case "nats":
		conn, err := nats.Connect(cfg.URL)
		if err != nil {
			log.Printf("[ERROR] surveillance-core: nats connect failed: %v", err)
			return bus.New(nil, cfg.Root, cfg.QoS)
		}
		return bus.New(bus.NewNATSPublisher(conn, 3), cfg.Root, cfg.QoS)
	case "mqtt":
		pub, err := bus.NewMQTTPublisher(bus.MQTTConfig{BrokerURL: cfg.URL, ClientID: "surveillance-core"})
		if err != nil {
			log.Printf("[ERROR] surveillance-core: mqtt connect failed: %v", err)
			return bus.New(nil, cfg.Root, cfg.QoS)
		}
		return bus.New(pub, cfg.Root, cfg.QoS)
	default:
		return bus.New(nil, cfg.Root, cfg.QoS)
	}
}

// ingestRawSubject is the NATS subject a synthetic or transport-adapter
// publisher sends ingest.RawState JSON to — kept as a dev/test entry point
// since the real RTSP/USB/Protect transport is out of scope here (contract
// only; see evidence.Acquirer.Snapshots above).
const ingestRawSubject = "surveillance.ingest.raw"

// startMockIngestSubscriber subscribes to ingestRawSubject and feeds every
// decoded ingest.RawState into h.HandleProtect, mirroring scripts/mock_ai.go's
// NATS-publish/subscribe pattern but running the subscribing half instead of
// the synthetic half (that lives in cmd/mock-camera-feed).
func startMockIngestSubscriber(natsURL string, h *ingest.Handler) (*nats.Subscription, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	sub, err := nc.Subscribe(ingestRawSubject, func(msg *nats.Msg) {
		var raw ingest.RawState
		if err := json.Unmarshal(msg.Data, &raw); err != nil {
			log.Printf("[ERROR] surveillance-core: malformed ingest payload: %v", err)
			return
		}
		h.HandleProtect(raw)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	log.Printf("surveillance-core: ingest subscriber listening on %s", ingestRawSubject)
	return sub, nil
}

func apiKeysFromEnv() map[string]string {
	return map[string]string{
		"openai": os.Getenv("OPENAI_API_KEY"),
		"grok":   os.Getenv("GROK_API_KEY"),
		"claude": os.Getenv("CLAUDE_API_KEY"),
		"gemini": os.Getenv("GEMINI_API_KEY"),
	}
}

// usageLogAdapter satisfies aiprovider.UsageLog (no ctx, no error return —
// the chain fires and forgets) by appending to the durable costing.Ledger
// on a background context, logging a persistence failure rather than
// propagating it back into the dispatch path.
type usageLogAdapter struct {
	ledger data.AIUsageModel
}

func (a usageLogAdapter) Append(e aiprovider.UsageEntry) {
	err := a.ledger.Append(context.Background(), costing.Entry{
		Timestamp:      e.Timestamp,
		Provider:       e.Provider,
		Success:        e.Success,
		TokensIn:       e.TokensIn,
		TokensOut:      e.TokensOut,
		ResponseTimeMS: e.ResponseTimeMS,
		CostUSD:        e.CostUSD,
		IsEstimated:    e.IsEstimated,
		ImageCount:     e.ImageCount,
		Error:          e.ErrorMessage,
	})
	if err != nil {
		log.Printf("[ERROR] surveillance-core: ai usage log append failed: %v", err)
	}
}

// costCapAdapter satisfies evidence.CostCapChecker, adapting
// costing.CapChecker's error-returning CapActive to the evidence package's
// narrower bool/string contract — a cap-check failure fails open (doesn't
// pause dispatch) rather than blocking every event on a database hiccup.
type costCapAdapter struct {
	cap costing.CapChecker
}

func (a costCapAdapter) Check(ctx context.Context, cam *model.Camera) (bool, string) {
	active, reason, err := a.cap.CapActive(ctx)
	if err != nil {
		log.Printf("[ERROR] surveillance-core: cost cap check failed: %v", err)
		return false, ""
	}
	return active, reason
}
