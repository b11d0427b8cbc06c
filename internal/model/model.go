// Package model defines core data structures and types for the thread composer.
package model

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type UserID string

type DraftID string

type PostID string

type ThreadID string

// ContentRef is the stable reference returned by the content-upload collaborator.
type ContentRef string

// NewDraftID returns a create-time-ordered draft identifier. Drafts listed for a
// user sort naturally by id, which matches creation order.
func NewDraftID() DraftID {
	return DraftID(ulid.MustNew(ulid.Now(), rand.Reader).String())
}

func NewPostID() PostID {
	return PostID(uuid.New().String())
}

// Post is one template-typed content unit within a draft or published thread.
// The shape of Content is determined entirely by TemplateID.
type Post struct {
	ID         PostID
	TemplateID TemplateID
	Content    Content
}

// Draft is a locally-owned, persisted, editable multi-post thread not yet
// published. The id is assigned once at creation and never regenerated;
// UpdatedAt increases on every persisted mutation. Post order is insertion
// order and defines thread reading order.
type Draft struct {
	ID        DraftID   `json:"id"`
	Title     string    `json:"title"`
	Posts     []Post    `json:"posts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the draft. Snapshots handed to autosave and
// publish must not alias the live posts slice.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Posts = make([]Post, len(d.Posts))
	for i, p := range d.Posts {
		c.Posts[i] = p
		if p.Content != nil {
			c.Posts[i].Content = p.Content.Clone()
		}
	}
	return &c
}

// Thread is a published, addressable social-graph entry as recorded in the
// local thread index.
type Thread struct {
	ID        ThreadID   `json:"id"`
	Author    UserID     `json:"author"`
	Content   string     `json:"content"`
	MediaRef  ContentRef `json:"mediaRef"`
	PostCount int        `json:"postCount"`
	CreatedAt time.Time  `json:"createdAt"`
}
