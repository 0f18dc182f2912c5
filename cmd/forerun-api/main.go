// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/forerun-app/forerun/api"
	"github.com/forerun-app/forerun/backup"
	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/hook"
	"github.com/forerun-app/forerun/logx"
	"github.com/forerun-app/forerun/store"
	"github.com/forerun-app/forerun/store/postgres"
	"github.com/forerun-app/forerun/store/redisstore"
)

type envConfig struct {
	Addr      string `env:"ADDR,default=:5011"`
	TokenSalt string `env:"TOKEN_SALT,required"`
	Verbose   bool   `env:"VERBOSE,default=false"`

	// empty means the in-memory store, for development
	DatabaseURL string `env:"DATABASE_URL"`
	// empty keeps sessions in the primary store
	RedisURL string `env:"REDIS_URL"`

	// the frontend server's consumer, created at startup
	FrontendAPIKey    string `env:"FRONTEND_API_KEY,required"`
	FrontendAPISecret string `env:"FRONTEND_API_SECRET,required"`

	WebhookWorkers int `env:"WEBHOOK_WORKERS,default=4"`

	// empty disables s3 backups
	S3BackupBucket string `env:"S3_BACKUP_BUCKET"`
	S3BackupPrefix string `env:"S3_BACKUP_PREFIX,default=forerun"`
	// optional; empty falls back to the default aws credential chain
	AWSAccessKey string `env:"AWS_ACCESS_KEY"`
	AWSSecretKey string `env:"AWS_SECRET_KEY"`
}

func main() {
	// missing .env is fine; the environment may be set directly
	_ = godotenv.Load()

	var cfg envConfig
	if err := envdecode.StrictDecode(&cfg); err != nil {
		panic(err)
	}

	log, _ := logx.New(cfg.Verbose)

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("opening postgres: %s", err)
		}
		st = pg
		log.Info("using postgres store")
	} else {
		st = store.NewMemStore()
		log.Info("using in-memory store; content is lost on restart")
	}

	var sessions store.SessionStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parsing REDIS_URL: %s", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("pinging redis: %s", err)
		}
		sessions = redisstore.New(rdb)
		log.Info("keeping sessions in redis")
	}

	dispatcher := hook.NewDispatcher(st, log, cfg.WebhookWorkers)
	defer dispatcher.Close()

	server := api.NewServer(api.Config{
		Store:     st,
		Sessions:  sessions,
		Hooks:     dispatcher,
		Log:       log,
		TokenSalt: cfg.TokenSalt,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.EnsureConsumer(ctx, cfg.FrontendAPIKey, cfg.FrontendAPISecret, forum.SystemAdmin); err != nil {
		log.Fatalf("ensuring frontend consumer: %s", err)
	}

	if cfg.S3BackupBucket != "" {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			log.Fatalf("loading aws config: %s", err)
		}
		b := backup.New(s3.NewFromConfig(awsCfg), st, backup.Config{
			Bucket: cfg.S3BackupBucket,
			Prefix: cfg.S3BackupPrefix,
		}, log)
		go b.Loop(ctx)
	} else {
		log.Info("s3 backups disabled because S3_BACKUP_BUCKET is not set")
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}
	go func() {
		log.Infof("api server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %s", err)
	}
}
