package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"bluelog/app/auth"
	"bluelog/app/flash"
	"bluelog/app/render"
	"bluelog/app/services"

	"github.com/gorilla/mux"
)

// BlogController serves the public pages: the post index, categories,
// single posts with their comments, replies and theme switching.
type BlogController struct {
	*Base
	comments       *services.CommentService
	postPerPage    int
	commentPerPage int
}

func NewBlogController(base *Base, comments *services.CommentService, postPerPage, commentPerPage int) *BlogController {
	return &BlogController{
		Base:           base,
		comments:       comments,
		postPerPage:    postPerPage,
		commentPerPage: commentPerPage,
	}
}

// Index lists all posts, newest first.
func (c *BlogController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := c.posts.ListPosts(r.Context(), pageParam(r), c.postPerPage)
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	if wantsJSON(r) {
		c.sendJSON(w, http.StatusOK, posts)
		return
	}

	view := c.view(w, r)
	view.Posts = posts
	c.render(w, r, http.StatusOK, "blog/index", view)
}

func (c *BlogController) About(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, "blog/about", c.view(w, r))
}

// Category lists the posts of one category.
func (c *BlogController) Category(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	category, posts, err := c.posts.ListPostsByCategory(r.Context(), id, pageParam(r), c.postPerPage)
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	if wantsJSON(r) {
		c.sendJSON(w, http.StatusOK, map[string]interface{}{
			"category": category,
			"posts":    posts,
		})
		return
	}

	view := c.view(w, r)
	view.Category = category
	view.Posts = posts
	c.render(w, r, http.StatusOK, "blog/category", view)
}

// ShowPost renders a post with its approved comments and the comment form.
func (c *BlogController) ShowPost(w http.ResponseWriter, r *http.Request) {
	c.showPost(w, r, http.StatusOK, render.Form{})
}

func (c *BlogController) showPost(w http.ResponseWriter, r *http.Request, status int, form render.Form) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	post, err := c.posts.GetPost(ctx, id)
	if err != nil {
		c.sendError(w, r, err)
		return
	}
	comments, err := c.posts.ListApprovedComments(ctx, id, pageParam(r), c.commentPerPage)
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	if wantsJSON(r) {
		c.sendJSON(w, http.StatusOK, map[string]interface{}{
			"post":     post,
			"comments": comments,
		})
		return
	}

	replied, err := c.posts.RepliedTo(ctx, comments.Items)
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	form.Action = r.URL.RequestURI()
	if form.ReplyAuthor == "" {
		form.ReplyAuthor = r.URL.Query().Get("author")
	}

	view := c.view(w, r)
	view.Post = post
	view.Comments = comments
	view.Replied = replied
	view.Form = form
	c.render(w, r, status, "blog/post", view)
}

// SubmitComment handles the comment form of a post. The reply target comes
// from the "reply" query value.
func (c *BlogController) SubmitComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	canComment, err := c.comments.CanComment(ctx, id)
	if err != nil {
		c.sendError(w, r, err)
		return
	}
	postURL := fmt.Sprintf("/post/%d", id)
	if !canComment {
		if wantsJSON(r) {
			c.sendJSON(w, http.StatusForbidden, map[string]string{"error": services.MessageDisabled})
			return
		}
		flash.Set(w, "warning", services.MessageDisabled)
		http.Redirect(w, r, postURL, http.StatusSeeOther)
		return
	}

	input := services.CommentInput{
		PostID: id,
		Author: r.PostFormValue("author"),
		Email:  r.PostFormValue("email"),
		Site:   r.PostFormValue("site"),
		Body:   r.PostFormValue("body"),
	}
	if reply := r.URL.Query().Get("reply"); reply != "" {
		input.ReplyTo, err = strconv.Atoi(reply)
		if err != nil {
			c.sendError(w, r, services.ErrNotFound)
			return
		}
	}

	result, err := c.comments.Submit(ctx, auth.FromContext(ctx), input)
	if verr, ok := services.IsValidation(err); ok && !wantsJSON(r) {
		c.showPost(w, r, http.StatusUnprocessableEntity, render.Form{
			Author: input.Author,
			Email:  input.Email,
			Site:   input.Site,
			Body:   input.Body,
			Errors: verr.Fields,
		})
		return
	}
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	if wantsJSON(r) {
		c.sendJSON(w, http.StatusCreated, map[string]interface{}{
			"comment": result.Comment,
			"message": result.Message,
		})
		return
	}

	flash.Set(w, result.Category, result.Message)
	http.Redirect(w, r, postURL, http.StatusSeeOther)
}

// ReplyComment sends the visitor to the comment form of the post, set up to
// answer the given comment.
func (c *BlogController) ReplyComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	target, err := c.comments.PrepareReply(r.Context(), id)
	if err != nil {
		c.sendError(w, r, err)
		return
	}
	if target.CommentsDisabled {
		flash.Set(w, "warning", services.MessageDisabled)
	}
	http.Redirect(w, r, target.URL(), http.StatusFound)
}

// ChangeTheme stores the theme preference and goes back.
func (c *BlogController) ChangeTheme(w http.ResponseWriter, r *http.Request) {
	choice, err := c.themes.Select(mux.Vars(r)["name"])
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     services.ThemeCookieName,
		Value:    choice.Name,
		Path:     "/",
		MaxAge:   int(choice.MaxAge.Seconds()),
		Expires:  choice.Expires,
		SameSite: http.SameSiteLaxMode,
	})
	redirectBack(w, r, "/", http.StatusFound)
}
