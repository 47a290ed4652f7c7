package main

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flashorca/gateway/adapters/events"
	"github.com/flashorca/gateway/adapters/store"
	"github.com/flashorca/gateway/adapters/tokenizer"
	"github.com/flashorca/gateway/adapters/upstream"
	"github.com/flashorca/gateway/config"
	"github.com/flashorca/gateway/ports"
	"github.com/flashorca/gateway/service"
	httptransport "github.com/flashorca/gateway/transport/http"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	wmLogger := watermill.NewStdLogger(false, false)

	var sessionStore ports.Store
	var publisher message.Publisher

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to parse Redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			logger.Fatal("failed to create Redis publisher", zap.Error(err))
		}

		sessionStore = store.NewRedisStore(redisClient)
	} else {
		// Single-instance mode: in-memory store and in-process pubsub.
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		sessionStore = store.NewMemoryStore()
	}

	eventPub := events.NewWatermillPublisher(publisher)
	jwtTokenizer := tokenizer.NewJWTTokenizer(cfg.SessionSecret)

	siws := service.NewSIWSService(cfg, sessionStore, eventPub, logger)
	policy := service.NewMethodPolicy(cfg.AllowList, cfg.BlockList)
	proxy := service.NewRPCProxy(cfg.Upstreams, policy, upstream.NewHTTPClient(), logger)

	handlers := httptransport.NewHandlers(siws, proxy, jwtTokenizer, cfg, logger)
	router := httptransport.SetupRouter(handlers, jwtTokenizer, cfg)

	logger.Info("starting gateway",
		zap.String("listen", cfg.ListenAddress),
		zap.Strings("upstreams", cfg.Upstreams),
		zap.String("chain", cfg.SIWSChainID()),
	)

	if err := router.Run(cfg.ListenAddress); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
