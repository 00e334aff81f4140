package metrics

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace      = "IntPrep/API"
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// putMetricDataAPI is the part of the CloudWatch client used here
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch publishes generation metrics from a single background worker.
// Datums for one event go out in one PutMetricData call. When the queue is
// full new events are dropped rather than blocking a generation.
type CloudWatch struct {
	api         putMetricDataAPI
	environment string
	queue       chan []types.MetricDatum
	done        chan struct{}
	closeOnce   sync.Once
}

// NewCloudWatch returns a publisher that is enabled only in production
// and only when AWS configuration can be loaded.
func NewCloudWatch(ctx context.Context, environment string) *CloudWatch {
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &CloudWatch{environment: environment}
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &CloudWatch{environment: environment}
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)
	return newCloudWatchWithAPI(cloudwatch.NewFromConfig(cfg), environment)
}

func newCloudWatchWithAPI(api putMetricDataAPI, environment string) *CloudWatch {
	cw := &CloudWatch{
		api:         api,
		environment: environment,
		queue:       make(chan []types.MetricDatum, queueSize),
		done:        make(chan struct{}),
	}
	go cw.run()
	return cw
}

// Enabled reports whether metrics are published
func (cw *CloudWatch) Enabled() bool {
	return cw.queue != nil
}

func (cw *CloudWatch) RecordAttempt(_ context.Context, model string, success bool, duration time.Duration) {
	dims := cw.dimensions("Model", model, "Success", strconv.FormatBool(success))
	cw.enqueue(
		datum("ModelAttempts", 1, types.StandardUnitCount, dims),
		datum("ModelAttemptLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims),
	)
}

func (cw *CloudWatch) RecordGenerationDuration(_ context.Context, duration time.Duration, success bool) {
	dims := cw.dimensions("Success", strconv.FormatBool(success))
	cw.enqueue(datum("GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims))
}

// Close stops accepting metrics and waits for queued ones to be sent,
// or for ctx to end.
func (cw *CloudWatch) Close(ctx context.Context) error {
	if !cw.Enabled() {
		return nil
	}
	cw.closeOnce.Do(func() { close(cw.queue) })
	select {
	case <-cw.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cw *CloudWatch) enqueue(data ...types.MetricDatum) {
	if !cw.Enabled() {
		return
	}
	defer func() {
		// send on a closed queue after shutdown
		if recover() != nil {
			log.Printf("⚠️  CloudWatch publisher closed, dropping %d metrics", len(data))
		}
	}()
	select {
	case cw.queue <- data:
	default:
		log.Printf("⚠️  CloudWatch queue full, dropping %d metrics", len(data))
	}
}

func (cw *CloudWatch) run() {
	defer close(cw.done)
	for data := range cw.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		_, err := cw.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(namespace),
			MetricData: data,
		})
		cancel()
		if err != nil {
			log.Printf("Failed to publish %s metrics: %v", aws.ToString(data[0].MetricName), err)
		}
	}
}

// dimensions builds name/value pairs plus the environment
func (cw *CloudWatch) dimensions(pairs ...string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(pairs)/2+1)
	for i := 0; i+1 < len(pairs); i += 2 {
		dims = append(dims, types.Dimension{Name: aws.String(pairs[i]), Value: aws.String(pairs[i+1])})
	}
	return append(dims, types.Dimension{Name: aws.String("Environment"), Value: aws.String(cw.environment)})
}

func datum(name string, value float64, unit types.StandardUnit, dims []types.Dimension) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}
}
