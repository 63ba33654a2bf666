// Package mq 提供RabbitMQ连接管理与事件发布
package mq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectionState 连接状态
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	reconnectInterval = 5 * time.Second
	maxReconnectTries = 10
)

// ConnectionManager RabbitMQ连接管理器
// 连接断开后自动指数退避重连，直到Close被调用。
type ConnectionManager struct {
	url    string
	logger *zap.Logger

	conn      *amqp.Connection
	connMutex sync.RWMutex
	state     int32 // atomic

	stopCh chan struct{}
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager(url string, logger *zap.Logger) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionManager{
		url:    url,
		logger: logger,
		state:  int32(StateDisconnected),
		stopCh: make(chan struct{}),
	}
}

// Connect 建立连接并启动断线监控
func (cm *ConnectionManager) Connect() error {
	conn, err := amqp.Dial(cm.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	cm.connMutex.Lock()
	cm.conn = conn
	cm.connMutex.Unlock()
	atomic.StoreInt32(&cm.state, int32(StateConnected))

	cm.logger.Info("RabbitMQ连接成功")

	go cm.monitorConnection(conn)
	return nil
}

// Channel 从当前连接打开通道
func (cm *ConnectionManager) Channel() (*amqp.Channel, error) {
	cm.connMutex.RLock()
	conn := cm.conn
	cm.connMutex.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("rabbitmq connection is not available")
	}
	return conn.Channel()
}

// IsConnected 检查是否已连接
func (cm *ConnectionManager) IsConnected() bool {
	return ConnectionState(atomic.LoadInt32(&cm.state)) == StateConnected
}

// State 获取连接状态
func (cm *ConnectionManager) State() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&cm.state))
}

// Close 关闭连接并停止重连
func (cm *ConnectionManager) Close() error {
	if ConnectionState(atomic.SwapInt32(&cm.state, int32(StateClosed))) == StateClosed {
		return nil
	}
	close(cm.stopCh)

	cm.connMutex.Lock()
	defer cm.connMutex.Unlock()
	if cm.conn != nil && !cm.conn.IsClosed() {
		return cm.conn.Close()
	}
	return nil
}

// monitorConnection 监听连接关闭事件并触发重连
func (cm *ConnectionManager) monitorConnection(conn *amqp.Connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-cm.stopCh:
		return
	case amqpErr := <-closeCh:
		if amqpErr == nil {
			// 主动关闭
			return
		}
		cm.logger.Warn("RabbitMQ连接断开", zap.Error(amqpErr))
		atomic.StoreInt32(&cm.state, int32(StateReconnecting))
		cm.reconnect()
	}
}

// reconnect 指数退避重连
func (cm *ConnectionManager) reconnect() {
	backoff := reconnectInterval
	for attempt := 1; attempt <= maxReconnectTries; attempt++ {
		select {
		case <-cm.stopCh:
			return
		case <-time.After(backoff):
		}

		conn, err := amqp.Dial(cm.url)
		if err != nil {
			cm.logger.Warn("RabbitMQ重连失败",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}

		cm.connMutex.Lock()
		cm.conn = conn
		cm.connMutex.Unlock()
		atomic.StoreInt32(&cm.state, int32(StateConnected))

		cm.logger.Info("RabbitMQ重连成功", zap.Int("attempt", attempt))
		go cm.monitorConnection(conn)
		return
	}

	cm.logger.Error("RabbitMQ重连次数耗尽，放弃重连")
	atomic.StoreInt32(&cm.state, int32(StateDisconnected))
}
