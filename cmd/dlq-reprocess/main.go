package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/messaging/kafka"
)

const (
	defaultScanLimit   = 100
	defaultIdleTimeout = 2 * time.Second
)

type replayConfig struct {
	brokers     []string
	dlqTopic    string
	eventsTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// dlqWrapper — обёртка, которую outbox-воркер кладёт в DLQ вокруг
// неопубликованного события заказа.
type dlqWrapper struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// consumerWrapper — обёртка consumer'а: исходное событие лежит строкой
// в original_value после исчерпания retry.
type consumerWrapper struct {
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// replayEvent — восстановленное событие заказа, готовое к повторной публикации.
type replayEvent struct {
	envelope eventEnvelope
	key      string
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error)
	Close() error
}

type eventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
	Close() error
}

type saramaSourceAdapter struct {
	consumer sarama.Consumer
}

func (a saramaSourceAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaSourceAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newReplayDependencies = func(cfg replayConfig) (offsetClient, partitionSource, eventPublisher, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	source := saramaSourceAdapter{consumer: rawConsumer}

	if !cfg.execute {
		return client, source, nil, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers)
	if err != nil {
		_ = source.Close()
		_ = client.Close()
		return nil, nil, nil, err
	}

	return client, source, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig() (replayConfig, error) {
	var (
		brokersRaw string
		cfg        replayConfig
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: VENDAS_KAFKA_BROKERS)")
	flag.StringVar(&cfg.dlqTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	flag.StringVar(&cfg.eventsTopic, "target-topic", kafka.TopicOrderEvents, "target topic for replay")
	flag.IntVar(&cfg.limit, "limit", defaultScanLimit, "max number of messages to scan/replay")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("VENDAS_KAFKA_BROKERS")
	}

	for _, chunk := range strings.Split(brokersRaw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			cfg.brokers = append(cfg.brokers, broker)
		}
	}
	if len(cfg.brokers) == 0 {
		return replayConfig{}, fmt.Errorf("kafka brokers are required (-brokers or VENDAS_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.dlqTopic) == "" {
		return replayConfig{}, fmt.Errorf("source-topic is required")
	}
	if strings.TrimSpace(cfg.eventsTopic) == "" {
		return replayConfig{}, fmt.Errorf("target-topic is required")
	}
	if cfg.limit <= 0 {
		return replayConfig{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.idleTimeout <= 0 {
		return replayConfig{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg replayConfig) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.dlqTopic,
		"target_topic": cfg.eventsTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
	}).Info("starting dlq replay")

	client, source, producer, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if source != nil {
			_ = source.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	r := &replayer{cfg: cfg, client: client, source: source, producer: producer}
	return r.replayAll(ctx)
}

// replayer сканирует DLQ и переотправляет восстановленные события заказов.
type replayer struct {
	cfg      replayConfig
	client   offsetClient
	source   partitionSource
	producer eventPublisher

	processed int
	replayed  int
	skipped   int
}

func (r *replayer) replayAll(ctx context.Context) error {
	if r.client == nil || r.source == nil {
		return fmt.Errorf("kafka client and consumer are required")
	}
	if r.cfg.execute && r.producer == nil {
		return fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := r.client.Partitions(r.cfg.dlqTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", r.cfg.dlqTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", r.cfg.dlqTopic).Warn("source topic has no partitions")
		return nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if r.processed >= r.cfg.limit {
			break
		}
		if err := r.drainPartition(ctx, partition); err != nil {
			return err
		}
	}

	mode := "dry-run"
	if r.cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": r.processed,
		"replayed":  r.replayed,
		"skipped":   r.skipped,
	}).Info("dlq replay finished")

	return nil
}

func (r *replayer) drainPartition(ctx context.Context, partition int32) error {
	oldest, err := r.client.GetOffset(r.cfg.dlqTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.cfg.dlqTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return nil
	}

	startOffset := oldest
	if r.cfg.fromNewest {
		startOffset = newest - int64(r.cfg.limit-r.processed)
		if startOffset < oldest {
			startOffset = oldest
		}
	}

	stream, err := r.source.ConsumePartition(r.cfg.dlqTopic, partition, startOffset)
	if err != nil {
		return fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = stream.Close() }()

	idleTimer := time.NewTimer(r.cfg.idleTimeout)
	defer idleTimer.Stop()

	for r.processed < r.cfg.limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-stream.Errors():
			if err != nil {
				return fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-stream.Messages():
			if !ok || msg == nil {
				return nil
			}

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(r.cfg.idleTimeout)

			if msg.Offset >= newest {
				return nil
			}

			r.processed++
			if err := r.handleMessage(msg); err != nil {
				return err
			}

			if msg.Offset+1 >= newest {
				return nil
			}
		case <-idleTimer.C:
			return nil
		}
	}

	return nil
}

func (r *replayer) handleMessage(msg *sarama.ConsumerMessage) error {
	event, err := decodeDLQMessage(msg.Value)
	if err != nil {
		r.skipped++
		log.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip dlq message")
		return nil
	}

	if !r.cfg.execute {
		r.replayed++
		log.WithFields(log.Fields{
			"partition":    msg.Partition,
			"offset":       msg.Offset,
			"event_type":   event.envelope.EventType,
			"aggregate_id": event.envelope.AggregateID,
		}).Info("dlq replay candidate")
		return nil
	}

	if err := r.producer.PublishEvent(r.cfg.eventsTopic, event.key, event.envelope); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	r.replayed++
	return nil
}

// decodeDLQMessage восстанавливает событие заказа из сообщения DLQ.
// Поддерживаются обе обёртки: от outbox-воркера и от consumer'а.
// Всё, что не является валидным событием заказа, отбрасывается.
func decodeDLQMessage(value []byte) (replayEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return replayEvent{}, fmt.Errorf("decode dlq message: %w", err)
	}

	var consumed consumerWrapper
	if err := json.Unmarshal(value, &consumed); err == nil && consumed.OriginalValue != "" {
		if err := json.Unmarshal([]byte(consumed.OriginalValue), &envelope); err != nil {
			return replayEvent{}, fmt.Errorf("decode original event: %w", err)
		}
	} else if len(envelope.Payload) > 0 {
		var wrapped dlqWrapper
		if err := json.Unmarshal(envelope.Payload, &wrapped); err == nil && len(wrapped.Payload) > 0 {
			envelope = eventEnvelope{
				ID:            firstNonEmpty(wrapped.OutboxID, envelope.ID),
				AggregateType: firstNonEmpty(wrapped.AggregateType, envelope.AggregateType),
				AggregateID:   firstNonEmpty(wrapped.AggregateID, envelope.AggregateID),
				EventType:     firstNonEmpty(wrapped.EventType, envelope.EventType),
				Payload:       wrapped.Payload,
			}
		}
	}

	if err := validateOrderEvent(envelope); err != nil {
		return replayEvent{}, err
	}

	if envelope.ID == "" {
		envelope.ID = uuid.NewString()
	}
	envelope.PublishedAt = time.Now().UTC()

	key := envelope.AggregateID
	if key == "" {
		key = envelope.ID
	}

	return replayEvent{envelope: envelope, key: key}, nil
}

// validateOrderEvent допускает к replay только события жизненного цикла
// заказа с полезной нагрузкой, привязанной к конкретному заказу.
func validateOrderEvent(envelope eventEnvelope) error {
	if !kafka.EventType(envelope.EventType).Valid() {
		return fmt.Errorf("unsupported event type %q", envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("event %q has no payload", envelope.EventType)
	}

	var payload struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	if payload.OrderID == "" && envelope.AggregateID == "" {
		return fmt.Errorf("event %q is not bound to an order", envelope.EventType)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
