package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/zerologr"
	"github.com/memes/pihex"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	AppName                            = "pihex"
	PackageName                        = "github.com/memes/pihex/cmd/pihex"
	VerboseFlagName                    = "verbose"
	PrettyFlagName                     = "pretty"
	ThreadsFlagName                    = "threads"
	ChunkLengthFlagName                = "chunk-length"
	RedisTargetFlagName                = "redis-target"
	OpenTelemetryTargetFlagName        = "otlp-target"
	OpenTelemetryInsecureFlagName      = "otlp-insecure"
	OpenTelemetrySamplingRatioFlagName = "otlp-sampling-ratio"
	CACertFlagName                     = "cacert"
	TLSCertFlagName                    = "cert"
	TLSKeyFlagName                     = "key"
	// The 1-based digit position calculated when no argument is given, or
	// when the argument is not a positive integer. Results are accurate
	// to around this position with 64-bit floating point.
	DefaultDigitPosition          = 10000000
	DefaultOTLPTraceSamplingRatio = 0.5
)

var (
	// Version is updated from git tags during build.
	version = "unspecified"
	// Failed to load CA cert.
	errFailedToAppendCACert = errors.New("failed to append CA cert to CA pool")
)

func NewRootCmd() (*cobra.Command, error) {
	cobra.OnInitialize(initConfig)
	rootCmd := &cobra.Command{
		Use:     AppName + " [position]",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		Short:   "Calculate a hexadecimal digit of pi at an arbitrary position",
		Long: `Calculates the hexadecimal digit of pi at the requested 1-based position, and the eight digits that follow, using a parallel Bailey-Borwein-Plouffe digit extraction.

No preceding digits are computed. An optional Redis DB can be used to cache calculated digit blocks, and traces can be sent to an OpenTelemetry collection endpoint, if specified.`,
		RunE: calcMain,
	}
	rootCmd.PersistentFlags().CountP(VerboseFlagName, "v", "Enable verbose logging; can be repeated to increase verbosity")
	rootCmd.PersistentFlags().BoolP(PrettyFlagName, "p", false, "Disables structured JSON logging to stdout, making it easier to read")
	rootCmd.PersistentFlags().IntP(ThreadsFlagName, "t", 0, "The number of concurrent workers per wave; defaults to the hardware-reported concurrency")
	rootCmd.PersistentFlags().Int64(ChunkLengthFlagName, pihex.DefaultChunkLength, "The number of series terms assigned to each worker per wave")
	rootCmd.PersistentFlags().String(RedisTargetFlagName, "", "An optional Redis endpoint to use as a digit cache")
	rootCmd.PersistentFlags().String(OpenTelemetryTargetFlagName, "", "An optional OpenTelemetry collection target that will receive traces")
	rootCmd.PersistentFlags().Bool(OpenTelemetryInsecureFlagName, false, "Disable remote TLS verification for OpenTelemetry target")
	rootCmd.PersistentFlags().Float64(OpenTelemetrySamplingRatioFlagName, DefaultOTLPTraceSamplingRatio, "Set the OpenTelemetry trace sampling ratio")
	rootCmd.PersistentFlags().StringArray(CACertFlagName, nil, "An optional CA certificate to use for remote TLS verification; can be repeated")
	rootCmd.PersistentFlags().String(TLSCertFlagName, "", "An optional TLS certificate to use")
	rootCmd.PersistentFlags().String(TLSKeyFlagName, "", "An optional TLS private key to use")
	for _, name := range []string{
		VerboseFlagName,
		PrettyFlagName,
		ThreadsFlagName,
		ChunkLengthFlagName,
		RedisTargetFlagName,
		OpenTelemetryTargetFlagName,
		OpenTelemetryInsecureFlagName,
		OpenTelemetrySamplingRatioFlagName,
		CACertFlagName,
		TLSCertFlagName,
		TLSKeyFlagName,
	} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", name, err)
		}
	}
	return rootCmd, nil
}

// Determine the outcome of command line flags, environment variables, and an
// optional configuration file to perform initialization of the application.
// An appropriate zerolog will be assigned as the default logr sink.
func initConfig() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zl := zerolog.New(os.Stderr).With().Caller().Timestamp().Logger()
	viper.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName("." + AppName)
	viper.SetEnvPrefix(AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	verbosity := viper.GetInt(VerboseFlagName)
	switch {
	case verbosity > 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
	if viper.GetBool(PrettyFlagName) {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger = zerologr.New(&zl)
	if err == nil {
		return
	}
	var cfgNotFound viper.ConfigFileNotFoundError
	if !errors.As(err, &cfgNotFound) {
		logger.Error(err, "Error reading configuration file")
	}
}

// Creates a new pool of x509 certificates from the list of file paths provided,
// appended to any system installed certificates.
func newCACertPool(cacerts []string) (*x509.CertPool, error) {
	logger := logger.V(1).WithValues(CACertFlagName, cacerts)
	if len(cacerts) == 0 {
		logger.V(0).Info("No CA certificate paths provided; returning nil for CA cert pool")
		return nil, nil
	}
	logger.V(0).Info("Building certificate pool from file(s)")
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to build new CA cert pool from SystemCertPool: %w", err)
	}
	for _, cacert := range cacerts {
		ca, err := os.ReadFile(cacert)
		if err != nil {
			return nil, fmt.Errorf("failed to read from certificate file %s: %w", cacert, err)
		}
		if ok := pool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("failed to process CA cert %s: %w", cacert, errFailedToAppendCACert)
		}
	}
	return pool, nil
}

// Creates a new TLS configuration from supplied arguments. If a certificate
// and key are provided, the loaded x509 certificate will be presented to the
// remote side of TLS connections. An optional pool of CA certificates can be
// provided for RootCA verification.
func newTLSConfig(certFile, keyFile string, rootCAs *x509.CertPool) (*tls.Config, error) {
	logger := logger.V(1).WithValues(TLSCertFlagName, certFile, TLSKeyFlagName, keyFile, "hasRootCAs", rootCAs != nil)
	logger.V(0).Info("Preparing TLS configuration")
	tlsConf := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if certFile != "" && keyFile != "" {
		logger.V(1).Info("Loading x509 certificate and key")
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate %s and key %s: %w", certFile, keyFile, err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	if rootCAs != nil {
		tlsConf.RootCAs = rootCAs
	}
	return tlsConf, nil
}
