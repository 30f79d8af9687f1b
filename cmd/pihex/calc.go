package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/memes/pihex"
	"github.com/memes/pihex/pkg/cache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Root command entrypoint. Parses the 1-based digit position, wires the
// configured cache and worker settings into the library, and prints the nine
// hexadecimal digits starting at the requested position.
func calcMain(cmd *cobra.Command, args []string) error {
	position := int64(DefaultDigitPosition)
	if len(args) > 0 {
		if v, err := strconv.ParseInt(args[0], 10, 64); err == nil && v > 0 {
			position = v
		} else {
			logger.Info("Position argument is not a positive integer; using default", "arg", args[0], "default", DefaultDigitPosition)
		}
	}
	d := position - 1
	threads := viper.GetInt(ThreadsFlagName)
	chunkLength := viper.GetInt64(ChunkLengthFlagName)
	redisTarget := viper.GetString(RedisTargetFlagName)
	logger := logger.V(1).WithValues("position", position, ThreadsFlagName, threads, ChunkLengthFlagName, chunkLength, RedisTargetFlagName, redisTarget)
	ctx := context.Background()
	logger.V(0).Info("Preparing telemetry")
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(viper.GetFloat64(OpenTelemetrySamplingRatioFlagName)))
	shutdownFunctions, err := initTelemetry(ctx, AppName, sampler)
	defer func() {
		for _, shutdown := range shutdownFunctions {
			if err := shutdown(ctx); err != nil {
				logger.Error(err, "Error during telemetry shutdown")
			}
		}
	}()
	if err != nil {
		return err
	}

	logger.V(0).Info("Preparing calculation")
	pihex.SetLogger(logger)
	pihex.SetWorkers(threads)
	pihex.SetChunkLength(chunkLength)
	if redisTarget != "" {
		pihex.SetCache(cache.NewRedisCache(ctx, redisTarget))
	}

	tracer := otel.Tracer(PackageName)
	ctx, span := tracer.Start(ctx, "calc", trace.WithAttributes(
		attribute.Int64("pihex.position", position),
		attribute.Int("pihex.threads", threads),
	))
	defer span.End()
	digits, err := pihex.HexDigits(ctx, d)
	if err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to calculate digits at position %d: %w", position, err)
	}
	span.SetStatus(otelcodes.Ok, "")
	fmt.Printf("Pi hex digits at position %d: %s\n", position, digits) //nolint:forbidigo // This is a deliberate choice
	return nil
}
