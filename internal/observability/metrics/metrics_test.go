package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestChatbotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatbotMetrics(reg)
	m.ObserveRequest("order_status", OutcomeAnswered, 0.01)
	m.ObserveRequest("order_status", OutcomeAnswered, 0.02)
	m.ObserveRequest("unknown", OutcomeUnrecognized, 0.001)
	m.ObserveStoreError("find_order")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	requests := findFamily(families, "orderdesk_chatbot_requests_total")
	if requests == nil {
		t.Fatalf("requests_total not registered")
	}
	if got := counterValue(requests, map[string]string{"intent": "order_status", "outcome": OutcomeAnswered}); got != 2 {
		t.Fatalf("expected 2 answered order_status requests, got %v", got)
	}
	errorsFamily := findFamily(families, "orderdesk_chatbot_store_errors_total")
	if got := counterValue(errorsFamily, map[string]string{"operation": "find_order"}); got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}
	latency := findFamily(families, "orderdesk_chatbot_latency_seconds")
	if latency == nil || len(latency.GetMetric()) != 2 {
		t.Fatalf("expected latency histogram per intent")
	}
}

func TestChatbotMetricsDefaultRegistry(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	m := NewChatbotMetrics(nil)
	m.ObserveRequest("greeting", OutcomeAnswered, 0)
	prometheus.DefaultRegisterer.Unregister(m.requestsTotal)
	prometheus.DefaultRegisterer.Unregister(m.latency)
	prometheus.DefaultRegisterer.Unregister(m.storeErrors)
}

func TestChatbotMetricsNilSafe(t *testing.T) {
	var m *ChatbotMetrics
	m.ObserveRequest("history", OutcomeFailed, 0.1)
	m.ObserveStoreError("find_orders")
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterValue(family *dto.MetricFamily, labels map[string]string) float64 {
	if family == nil {
		return -1
	}
	for _, metric := range family.GetMetric() {
		matched := true
		for _, pair := range metric.GetLabel() {
			if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
				matched = false
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	return -1
}
