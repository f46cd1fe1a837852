package notify

import (
	"context"
	"sync/atomic"
	"time"

	"bluelog/app/metrics"
	"bluelog/app/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"
)

type MailerOptions struct {
	SiteURL    string
	AdminEmail string

	// QueueSize bounds the number of pending messages. Default: 64.
	QueueSize int

	// SendTimeout bounds one delivery. Default: 30s.
	SendTimeout time.Duration
}

// Mailer is the Notifier used by the application. Messages are queued and
// delivered by one background goroutine; a full queue drops the message.
type Mailer struct {
	opts    MailerOptions
	sender  Sender
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	queue  chan Message
	closed atomic.Bool
	tomb   tomb.Tomb
}

func NewMailer(sender Sender, opts MailerOptions, log logrus.FieldLogger, m *metrics.Metrics) *Mailer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}

	mailer := &Mailer{
		opts:    opts,
		sender:  sender,
		log:     log.WithField("component", "mailer"),
		metrics: m,
		queue:   make(chan Message, opts.QueueSize),
	}
	mailer.tomb.Go(mailer.run)
	return mailer
}

func (m *Mailer) NotifyNewComment(post *models.Post) {
	m.enqueue(NewCommentMessage(m.opts.SiteURL, m.opts.AdminEmail, post))
}

func (m *Mailer) NotifyNewReply(target *models.Comment) {
	m.enqueue(NewReplyMessage(m.opts.SiteURL, target))
}

func (m *Mailer) enqueue(msg Message) {
	if m.closed.Load() {
		m.drop(msg, "mailer closed")
		return
	}

	select {
	case m.queue <- msg:
	default:
		m.drop(msg, "mail queue full")
	}
}

func (m *Mailer) drop(msg Message, reason string) {
	m.metrics.NotificationSent(msg.Kind, "dropped")
	m.log.WithFields(logrus.Fields{"kind": msg.Kind, "to": msg.To}).Warn(reason)
}

func (m *Mailer) run() error {
	for {
		select {
		case msg := <-m.queue:
			m.deliver(msg)
		case <-m.tomb.Dying():
			// drain what was accepted before Close
			for {
				select {
				case msg := <-m.queue:
					m.deliver(msg)
				default:
					return nil
				}
			}
		}
	}
}

func (m *Mailer) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SendTimeout)
	defer cancel()

	fields := logrus.Fields{"kind": msg.Kind, "to": msg.To}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.metrics.NotificationSent(msg.Kind, "failed")
		m.log.WithFields(fields).WithError(err).Error("failed to send notification")
		return
	}
	m.metrics.NotificationSent(msg.Kind, "sent")
	m.log.WithFields(fields).Debug("notification sent")
}

// Close stops accepting messages, delivers the queued ones and waits for the
// worker to exit.
func (m *Mailer) Close() error {
	m.closed.Store(true)
	m.tomb.Kill(nil)
	return m.tomb.Wait()
}
