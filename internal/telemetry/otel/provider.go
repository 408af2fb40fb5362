package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/strongdm/supportdesk/http"

// Config controls OTEL exporter behaviour.
type Config struct {
	ServiceName   string
	EnableMetrics bool
	EnableTraces  bool
	Endpoint      string
	Headers       map[string]string
	// TraceWriter receives stdout-exported spans; nil means os.Stdout.
	TraceWriter io.Writer
	// Logger receives exporter warnings; nil means the logrus standard logger.
	Logger log.FieldLogger
}

func (c Config) logger() log.FieldLogger {
	if c.Logger == nil {
		return log.StandardLogger()
	}
	return c.Logger
}

// Provider owns OTEL meter/tracer providers and the derived HTTP instruments.
type Provider struct {
	cfg            Config
	reader         *sdkmetric.ManualReader
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          metric.Meter
	tracer         trace.Tracer

	httpInstruments *HTTPInstruments
	shutdownOnce    sync.Once
}

// Setup initialises the meter and tracer providers requested by cfg. With
// both disabled it returns an inert provider whose instruments are no-ops.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	warnUnusedHeaders(cfg)

	if !cfg.EnableMetrics && !cfg.EnableTraces {
		p := &Provider{cfg: cfg}
		p.httpInstruments = newHTTPInstruments(p)
		return p, nil
	}

	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "supportdesk"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	p := &Provider{cfg: cfg}

	if cfg.EnableMetrics {
		p.reader, p.meterProvider = createMeterProvider(cfg, res)
		otel.SetMeterProvider(p.meterProvider)
		p.meter = p.meterProvider.Meter(instrumentationName)
	}

	if cfg.EnableTraces {
		tp, err := createTracerProvider(cfg, res)
		if err != nil {
			return nil, err
		}
		p.tracerProvider = tp
		otel.SetTracerProvider(tp)
		p.tracer = tp.Tracer(instrumentationName)
	}

	p.httpInstruments = newHTTPInstruments(p)
	return p, nil
}

// warnUnusedHeaders reports configured export headers. Only local exporters
// exist, so the headers are never sent. Values are not logged.
func warnUnusedHeaders(cfg Config) {
	if len(cfg.Headers) == 0 {
		return
	}
	names := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	cfg.logger().WithField("headers", strings.Join(names, ",")).Warn("SUPPORTDESK_OTEL_HEADERS ignored: no remote exporter configured")
}

func createMeterProvider(cfg Config, res *resource.Resource) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	if strings.TrimSpace(cfg.Endpoint) != "" {
		cfg.logger().WithField("endpoint", cfg.Endpoint).Warn("SUPPORTDESK_OTEL_ENDPOINT ignored: remote OTLP metric export not implemented")
	}

	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
}

func createTracerProvider(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) != "" {
		cfg.logger().WithField("endpoint", cfg.Endpoint).Warn("SUPPORTDESK_OTEL_ENDPOINT ignored: OTLP trace export unsupported; using stdout exporter")
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if cfg.TraceWriter != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.TraceWriter))
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init stdout trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithMaxExportBatchSize(64)),
		sdktrace.WithResource(res),
	), nil
}

// Collect reads the current metric snapshot. Providers without metrics
// return an empty snapshot.
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if p == nil || p.reader == nil {
		return rm, nil
	}
	err := p.reader.Collect(ctx, &rm)
	return rm, err
}

// Shutdown flushes and stops the configured providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	p.shutdownOnce.Do(func() {
		var errs []error
		if p.meterProvider != nil {
			if shutdownErr := p.meterProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if p.tracerProvider != nil {
			if shutdownErr := p.tracerProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if len(errs) > 0 {
			err = errors.Join(errs...)
		}
	})
	return err
}

// HTTP returns the HTTP request instruments.
func (p *Provider) HTTP() *HTTPInstruments {
	if p == nil {
		return nil
	}
	return p.httpInstruments
}

// ParseHeaders converts SUPPORTDESK_OTEL_HEADERS into a header map (comma or
// semicolon separated key=value pairs).
func ParseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	pairs := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key != "" && value != "" {
			headers[key] = value
		}
	}
	return headers
}

// EnvBool interprets SUPPORTDESK_* env toggles.
func EnvBool(value string, defaultOn bool) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "1", "true", "on", "enable", "enabled", "yes":
		return true
	case "0", "false", "off", "disable", "disabled", "no":
		return false
	default:
		return defaultOn
	}
}
