package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bluelog/app/auth"
	"bluelog/app/metrics"
	"bluelog/app/models"
	"bluelog/app/notify"
	"bluelog/app/repositories"

	"github.com/sirupsen/logrus"
)

const (
	MessagePublished = "Comment published."
	MessagePending   = "Thanks, your comment will be published after reviewed."
	MessageDisabled  = "Comment is disabled."
)

// CommentInput is a submitted comment form plus the reply target taken from
// the request URL. Author, Email and Site are ignored for admins.
type CommentInput struct {
	PostID  int
	Author  string
	Email   string
	Site    string
	Body    string
	ReplyTo int
}

// Submission is the outcome of an accepted comment.
type Submission struct {
	Comment *models.Comment
	// Message is shown to the submitter; Category is its flash category.
	Message  string
	Category string
}

type CommentOptions struct {
	// SiteURL is used as the site of comments written by the admin.
	SiteURL string
	// AdminEmail is used when the session carries no e-mail.
	AdminEmail string
}

// CommentService accepts new comments, prepares replies and approves
// pending comments.
type CommentService struct {
	store    repositories.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	opts     CommentOptions
}

func NewCommentService(store repositories.Store, notifier notify.Notifier, m *metrics.Metrics, log logrus.FieldLogger, opts CommentOptions) *CommentService {
	return &CommentService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		log:      log.WithField("service", "comments"),
		opts:     opts,
	}
}

// Submit validates, stores and announces a comment. The moderation state is
// decided by identity alone: admin comments are published, anonymous ones
// wait for review. Nothing is stored or sent when validation fails.
//
// Submit does not look at Post.CanComment; callers gate on it.
func (s *CommentService) Submit(ctx context.Context, identity auth.Identity, in CommentInput) (*Submission, error) {
	post, err := s.store.Posts().GetByID(ctx, in.PostID)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", in.PostID, err)
	}

	comment, err := s.buildComment(identity, post, in)
	if err != nil {
		return nil, err
	}

	var target *models.Comment
	if in.ReplyTo != 0 {
		target, err = s.store.Comments().GetByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("reply target %d: %w", in.ReplyTo, err)
		}
		if err := comment.SetReplied(target); err != nil {
			return nil, fmt.Errorf("reply target %d: %w", in.ReplyTo, ErrNotFound)
		}
	}

	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	branch := "anonymous"
	if identity.IsAdmin() {
		branch = "admin"
	}
	s.metrics.CommentSubmitted(branch)
	s.log.WithFields(logrus.Fields{
		"post_id":    post.ID,
		"comment_id": comment.ID,
		"replied_id": comment.RepliedID,
		"branch":     branch,
	}).Info("comment created")

	switch {
	case target != nil:
		s.notifier.NotifyNewReply(target)
	case !identity.IsAdmin():
		s.notifier.NotifyNewComment(post)
	}

	if identity.IsAdmin() {
		return &Submission{Comment: comment, Message: MessagePublished, Category: "success"}, nil
	}
	return &Submission{Comment: comment, Message: MessagePending, Category: "info"}, nil
}

func (s *CommentService) buildComment(identity auth.Identity, post *models.Post, in CommentInput) (*models.Comment, error) {
	comment := &models.Comment{}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}

	if identity.IsAdmin() {
		form := adminCommentForm{Body: strings.TrimSpace(in.Body)}
		if err := validateForm(form); err != nil {
			return nil, err
		}

		comment.Author = identity.Name
		if comment.Author == "" {
			comment.Author = identity.Username
		}
		comment.Email = identity.Email
		if comment.Email == "" {
			comment.Email = s.opts.AdminEmail
		}
		comment.Site = s.opts.SiteURL
		comment.Body = form.Body
		comment.FromAdmin = true
		comment.Reviewed = true
		return comment, nil
	}

	form := anonymousCommentForm{
		Author: strings.TrimSpace(in.Author),
		Email:  strings.TrimSpace(in.Email),
		Site:   strings.TrimSpace(in.Site),
		Body:   strings.TrimSpace(in.Body),
	}
	if err := validateForm(form); err != nil {
		return nil, err
	}

	comment.Author = form.Author
	comment.Email = form.Email
	comment.Site = form.Site
	comment.Body = form.Body
	return comment, nil
}

// ReplyTarget tells the caller where to send a visitor who wants to answer a
// comment.
type ReplyTarget struct {
	PostID    int
	CommentID int
	Author    string

	// CommentsDisabled is set when the post no longer takes comments. The
	// caller should warn and send the visitor to the bare post.
	CommentsDisabled bool
}

// URL returns the comment form of the post, pre-filled for the reply when
// comments are enabled.
func (t *ReplyTarget) URL() string {
	if t.CommentsDisabled {
		return fmt.Sprintf("/post/%d", t.PostID)
	}
	return fmt.Sprintf("/post/%d?reply=%d&author=%s#comment-form", t.PostID, t.CommentID, url.QueryEscape(t.Author))
}

// PrepareReply resolves the comment being answered.
func (s *CommentService) PrepareReply(ctx context.Context, commentID int) (*ReplyTarget, error) {
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment %d: %w", commentID, err)
	}
	post, err := s.store.Posts().GetByID(ctx, comment.PostID)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", comment.PostID, err)
	}

	if !post.CanComment {
		return &ReplyTarget{PostID: post.ID, CommentsDisabled: true}, nil
	}
	return &ReplyTarget{PostID: post.ID, CommentID: comment.ID, Author: comment.Author}, nil
}

// Approve publishes a pending comment.
func (s *CommentService) Approve(ctx context.Context, commentID int) (*models.Comment, error) {
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment %d: %w", commentID, err)
	}
	if comment.Reviewed {
		return comment, nil
	}

	comment.Reviewed = true
	if err := s.store.Comments().Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to approve comment %d: %w", commentID, err)
	}
	s.log.WithField("comment_id", commentID).Info("comment approved")
	return comment, nil
}

// CanComment reports whether the post accepts new comments.
func (s *CommentService) CanComment(ctx context.Context, postID int) (bool, error) {
	post, err := s.store.Posts().GetByID(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("post %d: %w", postID, err)
	}
	return post.CanComment, nil
}
