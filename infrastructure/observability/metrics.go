package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"raffle/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the raffle service.
// A nil provider is valid and records nothing.
type MetricsProvider struct {
	config        *config.Config
	reader        sdkmetric.Reader
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	entriesCounter               metric.Int64Counter
	entryAmountCounter           metric.Int64Counter
	upkeepsCounter               metric.Int64Counter
	settlementsCounter           metric.Int64Counter
	payoutAmountCounter          metric.Int64Counter
	fulfillmentLatencyHist       metric.Float64Histogram
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// NewMetricsProviderWithReader creates a provider that exports to the given reader
func NewMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
		reader: reader,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
			attribute.String("network", mp.config.Network),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

		case "otlp":
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(dialCtx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
		)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("raffle")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.entriesCounter, err = mp.meter.Int64Counter(
		EntriesTotal,
		metric.WithDescription("Total number of accepted raffle entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create entries counter: %w", err)
	}

	mp.entryAmountCounter, err = mp.meter.Int64Counter(
		EntryAmountTotal,
		metric.WithDescription("Total amount paid into raffle pools"),
	)
	if err != nil {
		return fmt.Errorf("failed to create entry amount counter: %w", err)
	}

	mp.upkeepsCounter, err = mp.meter.Int64Counter(
		UpkeepsTotal,
		metric.WithDescription("Upkeep attempts by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upkeeps counter: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Settlement attempts by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.payoutAmountCounter, err = mp.meter.Int64Counter(
		PayoutAmountTotal,
		metric.WithDescription("Total amount paid to winners"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payout amount counter: %w", err)
	}

	mp.fulfillmentLatencyHist, err = mp.meter.Float64Histogram(
		FulfillmentLatency,
		metric.WithDescription("Time from randomness request to fulfillment in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return fmt.Errorf("failed to create fulfillment latency histogram: %w", err)
	}

	mp.natsMessagesReceivedCounter, err = mp.meter.Int64Counter(
		NATSMessagesReceivedTotal,
		metric.WithDescription("Total number of NATS messages received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages received counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordEntry records an accepted entry and its amount
func (mp *MetricsProvider) RecordEntry(raffleID, amount int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.Int64(LabelRaffleID, raffleID))
	mp.entriesCounter.Add(context.Background(), 1, attrs)
	mp.entryAmountCounter.Add(context.Background(), amount, attrs)
}

// RecordUpkeep records the outcome of an upkeep attempt
func (mp *MetricsProvider) RecordUpkeep(raffleID int64, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.upkeepsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.Int64(LabelRaffleID, raffleID),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordSettlement records the outcome of a settlement attempt. raffleID is 0
// when the request could not be resolved; payout only counts on success.
func (mp *MetricsProvider) RecordSettlement(raffleID int64, outcome string, payout int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(LabelOutcome, outcome)}
	if raffleID > 0 {
		attrs = append(attrs, attribute.Int64(LabelRaffleID, raffleID))
	}
	mp.settlementsCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	if outcome == SettlementSucceeded {
		mp.payoutAmountCounter.Add(context.Background(), payout,
			metric.WithAttributes(attribute.Int64(LabelRaffleID, raffleID)),
		)
	}
}

// RecordFulfillmentLatency records how long a request waited for its words
func (mp *MetricsProvider) RecordFulfillmentLatency(duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.fulfillmentLatencyHist.Record(context.Background(), duration.Seconds())
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
