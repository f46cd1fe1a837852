package render

import (
	"bluelog/app/auth"
	"bluelog/app/flash"
	"bluelog/app/models"
)

// Theme is one selectable stylesheet.
type Theme struct {
	Name  string
	Label string
}

// View is the data every page template receives. The fields below the
// shared block are filled in by the page that needs them.
type View struct {
	BlogTitle  string
	Path       string
	Theme      string
	Themes     []Theme
	Categories []*models.Category
	Identity   auth.Identity
	CSRFToken  string
	Flash      *flash.Message
	Admin      *models.Admin

	Posts    *models.Page[*models.Post]
	Category *models.Category
	Post     *models.Post
	Comments *models.Page[*models.Comment]
	Replied  map[int]*models.Comment
	Form     Form
}

// Form carries the values and errors of a submitted form back to the page.
type Form struct {
	Action      string
	Author      string
	Email       string
	Site        string
	Body        string
	Username    string
	ReplyAuthor string
	Errors      map[string]string
}
