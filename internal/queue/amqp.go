package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// Job is the wire format for queued send and resend work.
type Job struct {
	EmailID int64 `json:"email_id"`
}

// AMQPQueue publishes jobs to durable RabbitMQ queues, one per topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects to the broker at url.
func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

// Publish declares the durable queue for the topic and publishes the payload
// as a JSON job. Payload must be an email ID.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	id, ok := payload.(int64)
	if !ok {
		return fmt.Errorf("unsupported payload type %T for topic %s", payload, topic)
	}

	declared, err := q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, _ := json.Marshal(Job{EmailID: id})
	return q.ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes jobs from the topic's durable queue, acking on success
// and requeueing up to 3 times on failure.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	declared, err := q.ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := q.ch.Consume(
		declared.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			if err := handler(job.EmailID); err != nil {
				log.Println("Job handler failed:", err)
				var retryCount int32
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = v
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	return nil
}

var _ Queue = (*AMQPQueue)(nil)
var _ Queue = (*InMemoryQueue)(nil)
