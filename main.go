package main

import (
	"context"
	"log"
	"os"
	"time"

	"recoagent/internal/api"
	"recoagent/internal/config"
	"recoagent/internal/lang"
	"recoagent/internal/logstore"
	"recoagent/internal/notify"
	"recoagent/internal/redis"
	"recoagent/internal/service/ai"
	"recoagent/internal/service/chat"
	"recoagent/internal/service/history"
	"recoagent/internal/stats"
	"recoagent/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("RECOAGENT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("RECOAGENT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var cache *redis.Client
	if cfg.Redis.Host != "" {
		cache, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer cache.Close()
	}

	provider := cfg.BasicConfig.DefaultProvider
	completer, err := ai.NewClient(context.Background(), provider, cfg.Providers[provider])
	if err != nil {
		log.Fatalf("init completion client: %v", err)
	}

	logs := logstore.New(cfg.BasicConfig.LogDir)
	histories := history.NewStore(db)
	detector := lang.NewDetector(cfg.Detection)
	mailer := notify.NewMailer(cfg.Email)

	chatService := chat.NewService(
		histories,
		logs,
		completer,
		detector,
		mailer,
		cfg.BasicConfig.HistoryWindow,
		time.Duration(cfg.BasicConfig.RequestTimeoutSeconds)*time.Second,
	)

	handlers := api.NewHandler(
		chatService,
		stats.NewAggregator(logs),
		logs,
		cache,
		time.Duration(cfg.BasicConfig.StatsCacheTTLSeconds)*time.Second,
		cfg.BasicConfig.AgentID,
	)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
