package controllers

import (
	"fmt"
	"net/http"

	"bluelog/app/flash"
	"bluelog/app/services"
)

// AdminController holds the moderation actions. Routes are expected to be
// behind middleware.RequireAdmin.
type AdminController struct {
	*Base
	comments *services.CommentService
}

func NewAdminController(base *Base, comments *services.CommentService) *AdminController {
	return &AdminController{Base: base, comments: comments}
}

// ApproveComment publishes a pending comment.
func (c *AdminController) ApproveComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	comment, err := c.comments.Approve(r.Context(), id)
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	if wantsJSON(r) {
		c.sendJSON(w, http.StatusOK, comment)
		return
	}
	flash.Set(w, "success", services.MessagePublished)
	redirectBack(w, r, fmt.Sprintf("/post/%d#comments", comment.PostID), http.StatusSeeOther)
}
