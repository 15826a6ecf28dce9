package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/your-org/ocrflow/internal/annotation"
	"github.com/your-org/ocrflow/pkg/config"
	"github.com/your-org/ocrflow/pkg/kafka"
	"github.com/your-org/ocrflow/pkg/logger"
	"github.com/your-org/ocrflow/pkg/natsbus"
	"github.com/your-org/ocrflow/pkg/ocr"
	"github.com/your-org/ocrflow/pkg/pubsub"
	"github.com/your-org/ocrflow/pkg/storage/objectstore"
	"github.com/your-org/ocrflow/pkg/tracing"
)

type notifier interface {
	annotation.Publisher
	Close() error
}

func main() {
	replay := flag.String("replay", "", "process the push envelope in `file` once and exit")
	listEngines := flag.Bool("list-engines", false, "print the registered annotation engines and exit")
	flag.Parse()

	if *listEngines {
		fmt.Println(strings.Join(ocr.Available(), "\n"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel, cfg.App.LogEncoding)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	stores, err := objectstore.New(objectstore.Config{
		Provider:        cfg.Storage.Provider,
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		AccessKey:       cfg.Storage.AccessKey,
		SecretKey:       cfg.Storage.SecretKey,
		UseSSL:          cfg.Storage.UseSSL,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}

	engine, err := ocr.New(ctx, ocr.Config{
		Engine:                cfg.Annotator.Engine,
		VisionCredentialsFile: cfg.Annotator.VisionCredentialsFile,
		VisionEndpoint:        cfg.Annotator.VisionEndpoint,
		APIURL:                cfg.Annotator.APIURL,
		DocumentType:          cfg.Annotator.DocumentType,
		DocumentCode:          cfg.Annotator.DocumentCode,
		APITimeout:            cfg.Annotator.APITimeout,
		Languages:             cfg.Annotator.TesseractLanguages,
	})
	if err != nil {
		logr.Fatal("init annotation engine", zap.Error(err), zap.Strings("available", ocr.Available()))
	}
	defer engine.Close() //nolint:errcheck

	pub, err := newNotifier(ctx, cfg)
	if err != nil {
		logr.Fatal("init notifier", zap.Error(err))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logr.Error("notifier close failed", zap.Error(err))
		}
	}()

	service := annotation.NewService(annotation.Params{
		Stores:       stores,
		Engine:       engine,
		Publisher:    pub,
		Logger:       logr,
		WorkDir:      cfg.Worker.WorkDir,
		DefaultTopic: cfg.Worker.DefaultTopic,
		SuccessCode:  cfg.Worker.SuccessStatusCode,
	})

	logr.Info("annotator configured",
		zap.String("engine", engine.Name()),
		zap.String("storage", cfg.Storage.Provider),
		zap.String("notifier", cfg.Notifier.Provider),
		zap.String("env", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	if *replay != "" {
		body, err := os.ReadFile(*replay)
		if err != nil {
			logr.Fatal("read replay envelope", zap.String("file", *replay), zap.Error(err))
		}
		res := service.HandleEnvelope(ctx, body)
		fmt.Println(res.Status)
		return
	}

	if cfg.Kafka.InboundTopic != "" {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.InboundTopic,
			GroupID: cfg.Kafka.ConsumerGroup,
		})
		defer consumer.Close() //nolint:errcheck

		go func() {
			logr.Info("kafka consumer starting", zap.String("topic", cfg.Kafka.InboundTopic))
			if err := service.Consume(ctx, consumer); err != nil {
				logr.Error("kafka consumer stopped", zap.Error(err))
				stop()
			}
		}()
	}

	handler := annotation.NewHTTPHandler(service, logr, cfg.HTTP.PushPath, cfg.HTTP.MaxBodyBytes)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("annotator starting", zap.String("addr", cfg.HTTP.Addr), zap.String("push_path", cfg.HTTP.PushPath))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Error("http server failed", zap.Error(err))
	}
}

func newNotifier(ctx context.Context, cfg *config.Config) (notifier, error) {
	switch strings.ToLower(cfg.Notifier.Provider) {
	case "kafka":
		return kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		}), nil
	case "pubsub", "":
		return pubsub.NewPublisher(ctx, pubsub.Config{
			ProjectID:       cfg.PubSub.ProjectID,
			CredentialsFile: cfg.PubSub.CredentialsFile,
		})
	case "nats":
		return natsbus.NewPublisher(natsbus.Config{
			URL:            cfg.NATS.URL,
			ConnectTimeout: cfg.NATS.ConnectTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported notifier provider %q", cfg.Notifier.Provider)
	}
}
