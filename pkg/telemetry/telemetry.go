// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry sets up OpenTelemetry tracing for bauth. Spans are only
// exported when an OTLP endpoint is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/batchauth/pkg/logger"
)

// DefaultServiceName is reported as service.name.
const DefaultServiceName = "bauth"

// Config holds the tracing configuration.
type Config struct {
	// Endpoint is the OTLP HTTP endpoint as host:port. Empty disables export.
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	// SamplingRate is the ratio of traces recorded, between 0 and 1.
	SamplingRate float64
	Headers      map[string]string
	Insecure     bool
}

// DefaultConfig returns a configuration with export disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:  DefaultServiceName,
		SamplingRate: 1.0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got %v", c.SamplingRate)
	}
	return nil
}

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
}

// NewProvider builds a tracer provider for cfg and installs it as the global
// provider along with W3C trace context propagation.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return &Provider{tracerProvider: tracenoop.NewTracerProvider()}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	logger.Debugw("Tracing enabled", "endpoint", cfg.Endpoint, "sampling_rate", cfg.SamplingRate)
	return &Provider{tracerProvider: tp, shutdown: tp.Shutdown}, nil
}

// TracerProvider returns the configured provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.shutdown != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	if err := p.shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
