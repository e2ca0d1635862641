//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-risk-service/internal/config"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/couchcryptid/wildfire-risk-service/internal/pipeline"
	"github.com/couchcryptid/wildfire-risk-service/internal/risk"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"

	testRegion = `{"type":"Polygon","coordinates":[[[-121,35],[-117,35],[-117,39],[-121,39],[-121,35]]]}`
)

// publishedResult holds a deserialized message read from the sink topic.
type publishedResult struct {
	Result  domain.Result
	Key     string
	Headers map[string]string
}

// readResult reads a single message from the sink consumer and deserializes it.
func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedResult {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var res domain.Result
	require.NoError(t, json.Unmarshal(msg.Value, &res), "unmarshal sink message")

	return publishedResult{
		Result:  res,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

func queryMessage(t *testing.T, id, op, date string, area bool) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(domain.RawQuery{
		ID:        id,
		Operation: op,
		Date:      date,
		Region:    json.RawMessage(testRegion),
		Area:      area,
	})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(id), Value: payload}
}

func newTransformer(t *testing.T) *pipeline.RiskTransformer {
	t.Helper()
	classifier := risk.New(mockCatalog(t), risk.DefaultSettings(), discardLogger())
	return pipeline.NewTransformer(classifier, discardLogger())
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip a query and its result through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msg := queryMessage(t, "q-roundtrip", "high_risk", "2024-07-15", true)
	require.NoError(t, producer.WriteMessages(ctx, msg))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("q-roundtrip"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	require.NoError(t, raw.Commit(ctx))

	res, err := newTransformer(t).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.Result{res}))

	pr := readResult(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "q-roundtrip", pr.Key)
	assert.Equal(t, "high_risk", pr.Headers["operation"])
	assert.Equal(t, "ok", pr.Headers["status"])
	_, err = time.Parse(time.RFC3339, pr.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, domain.StatusOK, pr.Result.Status)
	require.NotNil(t, pr.Result.Layer)
	assert.Equal(t, risk.HighRiskLayerName, pr.Result.Layer.Name)
	assert.Equal(t, res.Layer.Raster.ValidCount(), pr.Result.Layer.Raster.ValidCount())
	require.NotNil(t, pr.Result.Area)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer → Writer)
// with real Kafka and verifies every operation publishes a result.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	msgs := []kafkago.Message{
		queryMessage(t, "q-high-risk", "high_risk", "2024-07-15", true),
		queryMessage(t, "q-burned", "burned_area", "2024-07-15", true),
		queryMessage(t, "q-forest", "forest_density", "2024-07-15", false),
		queryMessage(t, "q-no-data", "high_risk", "2024-06-01", false),
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(t), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := make(map[string]publishedResult, len(msgs))
	for len(received) < len(msgs) {
		pr := readResult(ctx, t, consumer)
		received[pr.Key] = pr
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for _, pr := range received {
		assert.NotEmpty(t, pr.Headers["operation"], "missing operation header")
		_, err := time.Parse(time.RFC3339, pr.Headers["processed_at"])
		assert.NoError(t, err, "invalid processed_at format")
	}

	assert.Equal(t, risk.HighRiskLayerName, received["q-high-risk"].Result.Layer.Name)
	assert.NotNil(t, received["q-high-risk"].Result.Area)
	assert.Equal(t, risk.BurnedLayerName, received["q-burned"].Result.Layer.Name)
	assert.Equal(t, risk.ForestLayerName, received["q-forest"].Result.Layer.Name)

	noData := received["q-no-data"]
	assert.Equal(t, domain.StatusNoData, noData.Result.Status)
	assert.Equal(t, "no_data", noData.Headers["status"])
	assert.Nil(t, noData.Result.Layer)
	assert.True(t, p.Ready())
}

// TestPipelineTransformError verifies that an invalid message (poison pill) is
// skipped and the pipeline continues processing valid messages.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	// Publish: invalid JSON, an unknown operation, then a valid query.
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("unknown"), Value: []byte(`{"operation":"snowfall","region_name":"western"}`)},
		queryMessage(t, "good", "forest_density", "", false),
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(t), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid query should appear on the sink topic.
	consumer := sinkConsumer(t, broker)

	pr := readResult(ctx, t, consumer)
	assert.Equal(t, "good", pr.Key)
	assert.Equal(t, domain.OpForestDensity, pr.Result.Operation)

	// Verify no second message arrives (the poison pills were skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
