package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"google.golang.org/grpc/credentials"
	grpcinsecure "google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
)

type shutdownFunction func(context.Context) error

func noopShutdownFunction(_ context.Context) error {
	return nil
}

// Create a new OpenTelemetry resource to describe the source of traces.
func newTelemetryResource(ctx context.Context, name string) (*resource.Resource, error) {
	logger := logger.V(1).WithValues("name", name)
	logger.Info("Creating new OpenTelemetry resource descriptor")
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for telemetry resource: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceNamespaceKey.String(PackageName),
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(version),
			semconv.ServiceInstanceIDKey.String(id.String()),
		),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithOS(),
		resource.WithProcessPID(),
		resource.WithProcessExecutableName(),
		resource.WithProcessExecutablePath(),
		resource.WithProcessCommandArgs(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithProcessRuntimeDescription(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create new telemetry resource: %w", err)
	}
	logger.V(1).Info("OpenTelemetry resource created", "resource", res)
	return res, nil
}

// Initializes a pipeline handler that will send OpenTelemetry spans to the
// target provided, returning a list of shutdown functions.
func initTrace(ctx context.Context, target string, creds credentials.TransportCredentials, res *resource.Resource, sampler trace.Sampler) ([]shutdownFunction, error) {
	logger := logger.V(1).WithValues("target", target, "res", res, "sampler", sampler.Description())
	logger.V(1).Info("Creating new OpenTelemetry trace exporter")
	if target == "" {
		logger.V(0).Info("OpenTelemetry endpoint is not set; no traces will be sent to collector")
		return []shutdownFunction{
			noopShutdownFunction,
		}, nil
	}
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(target),
		otlptracegrpc.WithCompressor(gzip.Name),
	}
	if creds != nil {
		options = append(options, otlptracegrpc.WithTLSCredentials(creds))
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(options...))
	if err != nil {
		return nil, fmt.Errorf("failed to create new trace exporter: %w", err)
	}
	shutdownFuncs := []shutdownFunction{
		func(ctx context.Context) error {
			if err := exporter.Shutdown(ctx); err != nil {
				return fmt.Errorf("error during OpenTelemetry trace exporter shutdown: %w", err)
			}
			return nil
		},
	}

	// NOTE: provider.Shutdown will shutdown every registered span processor
	// so don't add an explicit shutdown function.
	spanProcessor := trace.NewBatchSpanProcessor(exporter)

	provider := trace.NewTracerProvider(
		trace.WithSampler(sampler),
		trace.WithSpanProcessor(spanProcessor),
		trace.WithResource(res),
	)
	shutdownFuncs = append([]shutdownFunction{
		func(ctx context.Context) error {
			if err := provider.Shutdown(ctx); err != nil {
				return fmt.Errorf("error during OpenTelemetry trace provider shutdown: %w", err)
			}
			return nil
		},
	}, shutdownFuncs...)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(provider)
	logger.V(1).Info("OpenTelemetry trace handlers created and started")
	return shutdownFuncs, nil
}

// Initializes OpenTelemetry trace processing and delivery to a collector
// target, returning a list of functions that can be called to shutdown the
// background pipeline processes.
func initTelemetry(ctx context.Context, name string, sampler trace.Sampler) ([]shutdownFunction, error) {
	otel.SetLogger(logger)
	target := viper.GetString(OpenTelemetryTargetFlagName)
	cacerts := viper.GetStringSlice(CACertFlagName)
	cert := viper.GetString(TLSCertFlagName)
	key := viper.GetString(TLSKeyFlagName)
	insecure := viper.GetBool(OpenTelemetryInsecureFlagName)
	logger := logger.V(1).WithValues(
		"name", name,
		"target", target,
		CACertFlagName, cacerts,
		TLSCertFlagName, cert,
		TLSKeyFlagName, key,
		OpenTelemetryInsecureFlagName, insecure,
		"sampler", sampler.Description(),
	)
	logger.Info("Initializing OpenTelemetry")

	res, err := newTelemetryResource(ctx, name)
	if err != nil {
		return nil, err
	}

	var creds credentials.TransportCredentials
	if insecure {
		creds = grpcinsecure.NewCredentials()
	} else {
		certPool, err := newCACertPool(cacerts)
		if err != nil {
			return nil, err
		}
		tlsConfig, err := newTLSConfig(cert, key, certPool)
		if err != nil {
			return nil, err
		}
		creds = credentials.NewTLS(tlsConfig)
	}

	shutdownFunctions, err := initTrace(ctx, target, creds, res, sampler)
	if err != nil {
		return shutdownFunctions, err
	}
	logger.Info("OpenTelemetry initialization complete, returning shutdown functions")
	return shutdownFunctions, nil
}
