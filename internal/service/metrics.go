package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

type authMetrics struct {
	logins        metric.Int64Counter
	registrations metric.Int64Counter
	refreshes     metric.Int64Counter
}

func newAuthMetrics(meter metric.Meter) (*authMetrics, error) {
	logins, err := meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	registrations, err := meter.Int64Counter("auth_registrations_total",
		metric.WithDescription("Successful registrations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("auth_refresh_total",
		metric.WithDescription("Token refresh attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh counter: %w", err)
	}

	return &authMetrics{
		logins:        logins,
		registrations: registrations,
		refreshes:     refreshes,
	}, nil
}

func (m *authMetrics) login(ctx context.Context, err error) {
	m.logins.Add(ctx, 1, metric.WithAttributes(resultAttr(err)))
}

func (m *authMetrics) registered(ctx context.Context) {
	m.registrations.Add(ctx, 1)
}

func (m *authMetrics) refresh(ctx context.Context, err error) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(resultAttr(err)))
}

func resultAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("result", resultFailure)
	}
	return attribute.String("result", resultSuccess)
}
