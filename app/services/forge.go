package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bluelog/app/models"
	"bluelog/app/repositories"
)

// ForgeOptions sizes the generated sample data.
type ForgeOptions struct {
	Categories int
	Posts      int
	Comments   int
	Seed       int64
}

var forgeWords = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam quis nostrud
exercitation ullamco laboris nisi aliquip ex ea commodo consequat`)

var forgeNames = []string{"Mima", "Grey", "Ada", "Linus", "Grace", "Ken", "Rob", "Barbara"}

type forger struct {
	store repositories.Store
	rnd   *rand.Rand
	start time.Time
}

// Forge fills the store with sample categories, posts and comments. The
// same seed yields the same data.
func Forge(ctx context.Context, store repositories.Store, opts ForgeOptions) error {
	f := &forger{
		store: store,
		rnd:   rand.New(rand.NewSource(opts.Seed)),
		start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	categories, err := f.categories(ctx, opts.Categories)
	if err != nil {
		return err
	}
	posts, err := f.posts(ctx, categories, opts.Posts)
	if err != nil {
		return err
	}
	return f.comments(ctx, posts, opts.Comments)
}

func (f *forger) sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = forgeWords[f.rnd.Intn(len(forgeWords))]
	}
	return capitalize(strings.Join(words, " ")) + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (f *forger) categories(ctx context.Context, count int) ([]*models.Category, error) {
	var categories []*models.Category
	if c, err := f.store.Categories().GetByName(ctx, DefaultCategory); err == nil {
		categories = append(categories, c)
	} else {
		c := &models.Category{Name: DefaultCategory}
		if err := f.store.Categories().Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create category: %w", err)
		}
		categories = append(categories, c)
	}

	for i := 0; i < count; i++ {
		c := &models.Category{Name: fmt.Sprintf("%s %d", capitalize(forgeWords[f.rnd.Intn(len(forgeWords))]), i+1)}
		if err := f.store.Categories().Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (f *forger) posts(ctx context.Context, categories []*models.Category, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		body := make([]string, 3)
		for j := range body {
			body[j] = f.sentence(20 + f.rnd.Intn(20))
		}
		post := &models.Post{
			Title:      strings.TrimSuffix(f.sentence(4), "."),
			Body:       strings.Join(body, "\n\n"),
			CanComment: f.rnd.Intn(10) > 0,
			CreatedAt:  f.start.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := post.SetCategory(categories[f.rnd.Intn(len(categories))]); err != nil {
			return nil, err
		}
		if err := f.store.Posts().Create(ctx, post); err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (f *forger) comments(ctx context.Context, posts []*models.Post, count int) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[int]*models.Post, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}

	var created []*models.Comment
	for i := 0; i < count; i++ {
		post := posts[f.rnd.Intn(len(posts))]

		// every fifth comment answers an earlier one
		var target *models.Comment
		if i%5 == 4 && len(created) > 0 {
			target = created[f.rnd.Intn(len(created))]
			post = byID[target.PostID]
		}

		name := forgeNames[f.rnd.Intn(len(forgeNames))]
		comment := &models.Comment{
			Author:    name,
			Email:     strings.ToLower(name) + "@example.com",
			Site:      "https://example.com/" + strings.ToLower(name),
			Body:      f.sentence(8 + f.rnd.Intn(12)),
			Reviewed:  f.rnd.Intn(4) > 0,
			CreatedAt: post.CreatedAt.Add(time.Duration(i+1) * time.Minute),
		}
		if err := post.AddComment(comment); err != nil {
			return err
		}
		if target != nil {
			if err := comment.SetReplied(target); err != nil {
				return err
			}
		}

		if err := f.store.Comments().Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		created = append(created, comment)
	}
	return nil
}
