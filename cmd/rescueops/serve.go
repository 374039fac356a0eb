package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"rescueops/internal/api"
	"rescueops/internal/clock"
	"rescueops/internal/ingest"
	"rescueops/internal/logging"
)

var (
	servePrintOnly bool
	serveLogFile   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry and alert HTTP service",
	Long:  "serve exposes health, config, weather, emergency-service, telemetry, communication, mission and alert endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		kv, closeKV, err := newKV(ctx, cfg.Storage, log)
		if err != nil {
			return err
		}
		defer closeKV()

		sinks, cleanup, err := newSinks(cfg.Storage, servePrintOnly, serveLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := []ingest.Option{ingest.WithSinks(sinks...), ingest.WithLogger(log)}
		if len(cfg.Messaging.KafkaBrokers) > 0 {
			pub := ingest.NewKafkaAlertPublisher(cfg.Messaging.KafkaBrokers, cfg.Messaging.KafkaTopic)
			defer pub.Close()
			opts = append(opts, ingest.WithAlertPublisher(pub))
			log.Info("alerts published to kafka", "brokers", cfg.Messaging.KafkaBrokers, "topic", cfg.Messaging.KafkaTopic)
		}
		svc := ingest.NewService(kv, opts...)

		if cfg.Messaging.MQTTBroker != "" {
			bridge := ingest.NewMQTTBridge(svc, cfg.Messaging.MQTTBroker, cfg.Messaging.MQTTTopic, log)
			go func() {
				if err := bridge.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("mqtt bridge stopped", "err", err)
				}
			}()
		}

		var weather api.WeatherSource
		if cfg.Keys.Weather != "" {
			weather = api.NewOpenWeather(cfg.Keys.Weather)
		}
		keys := api.Keys{Maps: cfg.Keys.Maps, Weather: cfg.Keys.Weather, Emergency: cfg.Keys.Emergency}
		handler := api.NewHandler(svc, weather, nil, keys, clock.Real(), log)

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              cfg.HTTP.APIAddr,
			Handler:           api.NewRouter(handler, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("api listening", "addr", cfg.HTTP.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("api stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Mirror telemetry to STDOUT instead of GreptimeDB")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Append ingested telemetry to this JSONL file")
}
