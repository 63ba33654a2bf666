// Package mq 提供RabbitMQ生产者实现
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultConfirmTimeout = 5 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryInterval  = time.Second
)

// Producer RabbitMQ生产者
// 每次发布打开独立通道并开启发布确认，失败后按固定间隔重试。
type Producer struct {
	cm       *ConnectionManager
	exchange string
	logger   *zap.Logger
}

// NewProducer 创建生产者并声明事件交换机
func NewProducer(cm *ConnectionManager, exchange string, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ch, err := cm.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Producer{cm: cm, exchange: exchange, logger: logger}, nil
}

// PublishJSON 发布JSON消息
func (p *Producer) PublishJSON(ctx context.Context, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}

	var lastErr error
	for attempt := 1; attempt <= defaultRetryAttempts; attempt++ {
		lastErr = p.publishOnce(ctx, routingKey, publishing)
		if lastErr == nil {
			return nil
		}

		p.logger.Warn("消息发布失败，准备重试",
			zap.String("routing_key", routingKey),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultRetryInterval):
		}
	}

	return fmt.Errorf("failed to publish after %d attempts: %w", defaultRetryAttempts, lastErr)
}

// publishOnce 单次带确认的发布
func (p *Producer) publishOnce(ctx context.Context, routingKey string, publishing amqp.Publishing) error {
	ch, err := p.cm.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable confirm mode: %w", err)
	}
	confirmCh := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	if err := ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirmCh:
		if !confirm.Ack {
			return fmt.Errorf("message nacked by broker")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultConfirmTimeout):
		return fmt.Errorf("publish confirm timeout")
	}
}
