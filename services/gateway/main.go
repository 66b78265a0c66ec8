// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jinterlante1206/AleutianVoice/pkg/logging"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/knowledge"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/routes"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/session"
	"github.com/jinterlante1206/AleutianVoice/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

var globalLLMClient llm.LLMClient

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("voice-gateway-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		slog.Warn("Invalid duration env var, using default", "name", name, "value", raw)
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func main() {
	port := os.Getenv("GATEWAY_PORT")
	if port == "" {
		port = "12220"
	}

	logging.Setup("voice-gateway-service")

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	// --- Session store ---
	sessionTTL := envSeconds("SESSION_TTL_SECONDS", session.DefaultSessionTTL)
	backend := session.NewBackend(session.BackendConfig{
		Mode:       os.Getenv("SESSION_BACKEND"),
		RedisURL:   os.Getenv("REDIS_URL"),
		BadgerPath: os.Getenv("SESSION_DB_PATH"),
		TTL:        sessionTTL,
	})
	defer backend.Close()

	storeConfig := session.DefaultStoreConfig()
	storeConfig.TTL = sessionTTL
	store := session.NewStore(backend, storeConfig)
	slog.Info("Session store ready", "backend", backend.Name(), "ttl", sessionTTL.String())

	// The reaper only matters for the in-memory backend; Redis and Badger
	// expire keys natively.
	if evictor, ok := backend.(session.Evictor); ok {
		reaper := session.NewReaper(evictor, session.ReaperConfig{
			Interval: envSeconds("SESSION_REAPER_INTERVAL_SECONDS", session.DefaultReaperInterval),
			OnEvict:  func(count int) { metrics.SessionsExpired.Add(float64(count)) },
		})
		if err := reaper.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start session reaper: %v", err)
		}
		defer reaper.Stop()
	}

	// --- Knowledge base (optional) ---
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Sanitize: Trim quotes and whitespace just in case Podman passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")

	var weaviateClient *weaviate.Client

	// Robust Check: URL must exist AND have a scheme (http/https)
	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running without knowledge base.",
				"url", weaviateURL, "error", err)
		} else {
			clientConf := weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			}
			weaviateClient, err = weaviate.NewClient(clientConf)
			if err != nil {
				slog.Error("Failed to create Weaviate client", "error", err)
				weaviateClient = nil
			} else {
				datatypes.EnsureWeaviateSchema(weaviateClient)
			}
		}
	} else {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running without knowledge base (sessions only).")
	}

	deps := routes.Dependencies{
		Store:   store,
		Metrics: metrics,
	}

	if weaviateClient != nil {
		collection := knowledge.NewCollection(weaviateClient)
		searcher := knowledge.NewWeaviateSearcher(weaviateClient)
		assembler := knowledge.NewContextAssembler(searcher, knowledge.DefaultAssemblerConfig(), metrics)
		deps.Collection = collection
		deps.Searcher = searcher
		deps.Assembler = assembler

		if seedPath := os.Getenv("DEFAULT_KB_FILE"); seedPath != "" {
			count, err := collection.LoadFromFile(context.Background(), seedPath)
			if err != nil {
				slog.Error("Failed to load default knowledge base", "path", seedPath, "error", err)
			} else {
				slog.Info("Loaded default knowledge base", "path", seedPath, "documents", count)
			}
		}
	}

	log.Println("Configuring the LLM Client")
	globalLLMClient, err = llm.NewClientFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	if deps.Assembler != nil {
		globalLLMClient = llm.NewRetrievalAugmentedClient(globalLLMClient, deps.Assembler, llm.DefaultRetrievalTokens)
		slog.Info("LLM client wrapped with knowledge base retrieval")
	}
	deps.LLMClient = globalLLMClient

	router := gin.Default()
	router.Use(otelgin.Middleware("voice-gateway-service"))

	routes.SetupRoutes(router, deps)
	log.Println("started up the container")

	log.Println("Starting the voice gateway server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
