package notify

import (
	"context"
	"fmt"
	"strings"

	"bluelog/app/models"

	"github.com/sirupsen/logrus"
)

// Notifier is told about new comments after they are stored. Calls never
// block on delivery and never report delivery failures.
type Notifier interface {
	NotifyNewComment(post *models.Post)
	NotifyNewReply(target *models.Comment)
}

// Message is one outgoing e-mail.
type Message struct {
	Kind    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const (
	KindNewComment = "new_comment"
	KindNewReply   = "new_reply"
)

// NewCommentMessage tells the admin about a comment waiting for review.
func NewCommentMessage(siteURL, adminEmail string, post *models.Post) Message {
	link := postLink(siteURL, post.ID)
	return Message{
		Kind:    KindNewComment,
		To:      adminEmail,
		Subject: "New comment",
		Body: fmt.Sprintf("New comment in post %q, click the link below to check:\n\n%s\n\n"+
			"(Please do not reply to this email.)\n", post.Title, link),
	}
}

// NewReplyMessage tells a commenter that someone answered them.
func NewReplyMessage(siteURL string, target *models.Comment) Message {
	link := postLink(siteURL, target.PostID)
	return Message{
		Kind:    KindNewReply,
		To:      target.Email,
		Subject: "New reply",
		Body: fmt.Sprintf("Hello %s,\n\nNew reply for the comment you left, click the link below to check:\n\n%s\n\n"+
			"(Please do not reply to this email.)\n", target.Author, link),
	}
}

func postLink(siteURL string, postID int) string {
	return fmt.Sprintf("%s/post/%d#comments", strings.TrimRight(siteURL, "/"), postID)
}

// LogSender writes messages to the log instead of sending them. It is used
// when no mail server is configured.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.WithFields(logrus.Fields{
		"kind":    msg.Kind,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail not sent, no mail server configured")
	return nil
}
