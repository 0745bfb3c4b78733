// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package observability exposes motion delivery metrics to Prometheus.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// Collector counts deliveries per sensor kind and tracks the last
// magnitude seen. It is both a motion.Recorder and a motion observer.
type Collector struct {
	gatherer prometheus.Gatherer

	SamplesDelivered  *prometheus.CounterVec
	DeliveryErrors    *prometheus.CounterVec
	UnavailableStarts *prometheus.CounterVec
	LastMagnitude     *prometheus.GaugeVec
}

// NewCollector registers the motion metrics against reg, or the default
// registerer when reg is nil. Registering twice reuses the existing vectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	delivered, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motionkit_samples_delivered_total",
		Help: "Samples handed to callbacks and observers, by sensor kind.",
	}, []string{"kind"}), "motionkit_samples_delivered_total")
	if err != nil {
		return nil, err
	}

	errs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motionkit_delivery_errors_total",
		Help: "Ticks that arrived with a delivery error, by sensor kind.",
	}, []string{"kind"}), "motionkit_delivery_errors_total")
	if err != nil {
		return nil, err
	}

	unavailable, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motionkit_unavailable_total",
		Help: "Start requests refused because the sensor is not available.",
	}, []string{"kind"}), "motionkit_unavailable_total")
	if err != nil {
		return nil, err
	}

	magnitude := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "motionkit_last_magnitude",
		Help: "Magnitude of the most recent sample, by sensor kind.",
	}, []string{"kind"})
	if err := reg.Register(magnitude); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, fmt.Errorf("collector motionkit_last_magnitude already registered with incompatible type")
		}
		magnitude = existing
	}

	return &Collector{
		gatherer:          gatherer,
		SamplesDelivered:  delivered,
		DeliveryErrors:    errs,
		UnavailableStarts: unavailable,
		LastMagnitude:     magnitude,
	}, nil
}

func (c *Collector) Delivered(kind motion.Kind) {
	if c == nil {
		return
	}
	c.SamplesDelivered.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) DeliveryError(kind motion.Kind) {
	if c == nil {
		return
	}
	c.DeliveryErrors.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) Unavailable(kind motion.Kind) {
	if c == nil {
		return
	}
	c.UnavailableStarts.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) AccelerometerValues(_, _, _, m float64) { c.setMagnitude(motion.Accelerometer, m) }
func (c *Collector) GyroscopeValues(_, _, _, m float64)     { c.setMagnitude(motion.Gyroscope, m) }
func (c *Collector) DeviceMotionValues(_, _, _, m float64)  { c.setMagnitude(motion.DeviceMotion, m) }
func (c *Collector) MagnetometerValues(_, _, _, m float64)  { c.setMagnitude(motion.Magnetometer, m) }

func (c *Collector) setMagnitude(kind motion.Kind, m float64) {
	if c == nil {
		return
	}
	c.LastMagnitude.WithLabelValues(kind.String()).Set(m)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
