package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_http_requests_total",
			Help: "Total number of HTTP requests processed by the meeting chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meeting_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meeting_ws_active_connections",
			Help: "Number of websocket connections held by this node.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	registryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_registry_events_total",
			Help: "Connection registry state changes.",
		},
		[]string{"event"},
	)
	broadcastDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_broadcast_dispatch_total",
			Help: "Dispatch calls by result.",
		},
		[]string{"result"},
	)
	broadcastDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_broadcast_deliveries_total",
			Help: "Per-connection delivery attempts by result.",
		},
		[]string{"result"},
	)
	broadcastDeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meeting_broadcast_delivery_duration_seconds",
			Help:    "Per-connection delivery latency in seconds.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
	triggerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_trigger_events_total",
			Help: "Message inserted events handled by the change trigger, by result.",
		},
		[]string{"result"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meeting_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		registryEventsTotal,
		broadcastDispatchTotal,
		broadcastDeliveriesTotal,
		broadcastDeliveryDuration,
		triggerEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncRegistryEvent(event string) {
	registryEventsTotal.WithLabelValues(event).Inc()
}

func IncDispatch(result string) {
	broadcastDispatchTotal.WithLabelValues(result).Inc()
}

// ObserveDelivery records one per-connection send.
func ObserveDelivery(d time.Duration, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	broadcastDeliveriesTotal.WithLabelValues(result).Inc()
	broadcastDeliveryDuration.Observe(d.Seconds())
}

func IncTriggerEvent(result string) {
	triggerEventsTotal.WithLabelValues(result).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
