package queue

// The background consumer listens to the tickets.reconcile queue and
// appends each partial-failure report to logs/reconcile.log. The log is
// the feed for the out-of-band sweep that repairs orphaned remote
// tickets and dangling local references.

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartReconcileConsumer connects to RabbitMQ, declares the durable
// tickets.reconcile queue and starts consuming messages. The function
// runs a reconnect loop with exponential backoff and keeps running for
// the life of the process; processing errors are logged and the
// offending message is rejected without requeue so the consumer never
// spins on a poison message.
func StartReconcileConsumer() error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(brokerURL())
        if err != nil {
            log.Printf("reconcile-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("reconcile-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("reconcile-consumer: set QoS failed: %v", err)
    }

    _, err = ch.QueueDeclare(reconcileQueueName, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(reconcileQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(d.Body); err != nil {
            log.Printf("reconcile-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
    var ev TicketReconcileEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "reconcile.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    ref := "ref=none"
    if ev.EventID != nil {
        ref = fmt.Sprintf("event_id=%d", *ev.EventID)
    } else if ev.PackageID != nil {
        ref = fmt.Sprintf("package_id=%d", *ev.PackageID)
    }

    line := fmt.Sprintf("[%s] Ticket needs reconciliation | condition=%s | client_id=%s | code=%s | %s\n",
        ev.OccurredAt, ev.Condition, ev.ClientID, ev.TicketCode, ref)

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
