package natsstan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"github.com/example/catalog-service/internal/domain"
	"github.com/example/catalog-service/internal/logger"
)

const (
	handlerTimeout = 5 * time.Second
	ackWait        = 10 * time.Second
)

// Subscriber — durable queue-подписка на команды upsert устройств.
type Subscriber struct {
	ClusterID  string
	ClientID   string
	URL        string
	Subject    string
	Durable    string
	QueueGroup string
	Log        *zap.Logger
}

// Subscribe подключается к STAN и обрабатывает сообщения до отмены ctx.
// Соединение закрывается вместе с ctx.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	log := logger.OrNop(s.Log)
	clientID := s.ClientID
	if clientID == "" {
		clientID = "catalog-svc-" + uuid.NewString()
	}
	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()
	log = log.With(zap.String("subject", s.Subject), zap.String("client_id", clientID))
	_, err = sc.QueueSubscribe(s.Subject, s.QueueGroup, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		msgLog := log.With(zap.Uint64("sequence", m.Sequence), zap.Bool("redelivered", m.Redelivered))
		if !deliver(logger.ToContext(hCtx, msgLog), m.Data, handler) {
			return
		}
		if err := m.Ack(); err != nil {
			msgLog.Warn("ack failed", zap.Error(err))
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(ackWait), stan.DeliverAllAvailable())
	if err != nil {
		sc.Close()
		return err
	}
	log.Info("subscribed", zap.String("queue_group", s.QueueGroup), zap.String("durable", s.Durable))
	return nil
}

// deliver runs handler and reports whether the message should be acked.
// Validation failures are acked: redelivery cannot fix them.
func deliver(ctx context.Context, raw []byte, handler func(ctx context.Context, raw []byte) error) bool {
	log := logger.FromContext(ctx)
	err := handler(ctx, raw)
	switch {
	case err == nil:
		log.Debug("message processed")
		return true
	case errors.Is(err, domain.ErrValidation):
		log.Warn("dropping invalid message", zap.Error(err))
		return true
	default:
		// не подтверждаем, даём сообщению переотправиться
		log.Error("handler error", zap.Error(err))
		return false
	}
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
