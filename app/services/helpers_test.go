package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bluelog/app/auth"
	"bluelog/app/logger"
	"bluelog/app/models"
	"bluelog/app/repositories/mock"

	"github.com/stretchr/testify/require"
)

var adminIdentity = auth.Identity{Authenticated: true, Username: "admin", Name: "Grey Li", Email: "grey@example.com"}

type recordingNotifier struct {
	mu       sync.Mutex
	comments []*models.Post
	replies  []*models.Comment
}

func (n *recordingNotifier) NotifyNewComment(post *models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = append(n.comments, post)
}

func (n *recordingNotifier) NotifyNewReply(target *models.Comment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, target)
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments, n.replies = nil, nil
}

type fixture struct {
	store    *mock.Store
	notifier *recordingNotifier
	posts    *PostService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mock.NewStore()
	notifier := &recordingNotifier{}
	log := logger.Discard()

	return &fixture{
		store:    store,
		notifier: notifier,
		posts:    NewPostService(store, log),
		comments: NewCommentService(store, notifier, nil, log, CommentOptions{
			SiteURL:    "http://localhost:8080",
			AdminEmail: "admin@example.com",
		}),
	}
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, f.store.Categories().Create(context.Background(), c))
	return c
}

func (f *fixture) post(t *testing.T, categoryID int, at time.Time, canComment bool) *models.Post {
	t.Helper()
	p := &models.Post{Title: "Post", Body: "Body", CategoryID: categoryID, CanComment: canComment, CreatedAt: at}
	require.NoError(t, f.store.Posts().Create(context.Background(), p))
	return p
}

func (f *fixture) comment(t *testing.T, postID int, reviewed bool, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, Author: "Mima", Email: "mima@example.com", Body: "Nice", Reviewed: reviewed, CreatedAt: at}
	require.NoError(t, f.store.Comments().Create(context.Background(), c))
	return c
}
