// Package composer mediates edits to a single post's content against its
// template schema.
package composer

import (
	"fmt"

	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/schema"
)

// ChangeFunc receives the full new content value after every successful
// mutation, not a diff. The owner merges it into the post.
type ChangeFunc func(model.Content)

// Composer accepts edits for exactly one post. Operations that don't apply to
// the post's template, or that would violate the template's bounds, are
// no-ops; only an invalid media URL is an error.
type Composer struct {
	post     *model.Post
	onChange ChangeFunc
}

func New(post *model.Post, onChange ChangeFunc) *Composer {
	if post.Content == nil {
		post.Content = model.EmptyContent(post.TemplateID)
	}
	return &Composer{post: post, onChange: onChange}
}

func (c *Composer) Post() *model.Post {
	return c.post
}

func (c *Composer) notify() {
	if c.onChange != nil {
		c.onChange(c.post.Content.Clone())
	}
}

// SetText replaces the primary text field. Always legal; on templates without
// a text field it is a no-op field.
func (c *Composer) SetText(value string) {
	switch v := c.post.Content.(type) {
	case *model.TextImageContent:
		v.Text = value
	case *model.ArticleContent:
		v.Text = value
	case *model.FreeformContent:
		v.Text = value
	default:
		return
	}
	c.notify()
}

// AddMedia validates the URL against the image/video extension rule and
// appends the classified media item. On a bad URL the content is left
// unchanged and the error is surfaced inline.
func (c *Composer) AddMedia(rawURL string) error {
	v, ok := c.post.Content.(*model.TextImageContent)
	if !ok {
		return nil
	}

	mediaType, ok := schema.MediaTypeFor(rawURL)
	if !ok {
		return fmt.Errorf("%q: %w", rawURL, schema.ErrInvalidMediaURL)
	}

	v.Media = append(v.Media, model.MediaItem{Type: mediaType, URL: rawURL})
	c.notify()
	return nil
}

func (c *Composer) RemoveMedia(index int) {
	v, ok := c.post.Content.(*model.TextImageContent)
	if !ok || index < 0 || index >= len(v.Media) {
		return
	}
	v.Media = append(v.Media[:index], v.Media[index+1:]...)
	c.notify()
}

// SetArticleTitle is only meaningful for the article template.
func (c *Composer) SetArticleTitle(value string) {
	v, ok := c.post.Content.(*model.ArticleContent)
	if !ok {
		return
	}
	v.Title = value
	c.notify()
}

func (c *Composer) SetPollQuestion(value string) {
	v, ok := c.post.Content.(*model.PollContent)
	if !ok {
		return
	}
	v.Question = value
	c.notify()
}

func (c *Composer) SetPollOption(index int, value string) {
	v, ok := c.post.Content.(*model.PollContent)
	if !ok || index < 0 || index >= len(v.Options) {
		return
	}
	v.Options[index] = value
	c.notify()
}

// AddOption appends a blank poll option. A no-op at the option ceiling.
func (c *Composer) AddOption() {
	v, ok := c.post.Content.(*model.PollContent)
	if !ok || len(v.Options) >= schema.MaxPollOptions {
		return
	}
	v.Options = append(v.Options, "")
	c.notify()
}

// RemoveOption removes the option at index. A no-op at the option floor.
func (c *Composer) RemoveOption(index int) {
	v, ok := c.post.Content.(*model.PollContent)
	if !ok || index < 0 || index >= len(v.Options) || len(v.Options) <= schema.MinPollOptions {
		return
	}
	v.Options = append(v.Options[:index], v.Options[index+1:]...)
	c.notify()
}
