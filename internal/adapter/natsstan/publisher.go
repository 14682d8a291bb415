package natsstan

import (
	stan "github.com/nats-io/stan.go"
)

// Publisher sends raw command payloads to one subject.
type Publisher struct {
	conn    stan.Conn
	subject string
}

func NewPublisher(clusterID, clientID, url, subject string) (*Publisher, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: sc, subject: subject}, nil
}

// Publish blocks until the server acknowledges the message.
func (p *Publisher) Publish(payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
