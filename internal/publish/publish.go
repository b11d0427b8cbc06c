// Package publish defines the external collaborators a thread passes through
// on its way onto the social graph: a per-post content uploader and a
// once-per-thread publisher.
package publish

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/model"
)

// Attribute keys and values of the aggregate publish payload. These are the
// wire contract with the publish collaborator and must not change.
const (
	AttrThreadMarker = "threadiverse"
	ThreadMarker     = "thread"
	AttrThreadCount  = "threadCount"

	// MediaRefType tags the uploaded smart-media reference in the payload.
	MediaRefType = "BONSAI"
)

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type MediaRef struct {
	Item model.ContentRef `json:"item"`
	Type string           `json:"type"`
}

// Payload is the single aggregate publish request for a whole thread: the
// thread title (or fallback text), the first post's uploaded content
// reference, and the thread marker and post-count attributes.
type Payload struct {
	Content    string      `json:"content"`
	Media      []MediaRef  `json:"media"`
	Attributes []Attribute `json:"attributes"`
}

// NewThreadPayload builds the aggregate payload for a thread of postCount
// posts whose first uploaded reference is ref.
func NewThreadPayload(content string, ref model.ContentRef, postCount int) Payload {
	return Payload{
		Content: content,
		Media:   []MediaRef{{Item: ref, Type: MediaRefType}},
		Attributes: []Attribute{
			{Key: AttrThreadMarker, Value: ThreadMarker},
			{Key: AttrThreadCount, Value: strconv.Itoa(postCount)},
		},
	}
}

// Attribute returns the value of the named attribute, or "" when absent.
func (p Payload) Attribute(key string) string {
	for _, a := range p.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// IsThread reports whether the payload carries the thread marker attribute.
func (p Payload) IsThread() bool {
	return p.Attribute(AttrThreadMarker) == ThreadMarker
}

// PostCount parses the post-count attribute back out of the payload. Returns
// 0 when missing or malformed.
func (p Payload) PostCount() int {
	n, err := strconv.Atoi(p.Attribute(AttrThreadCount))
	if err != nil {
		return 0
	}
	return n
}

// FirstMediaRef returns the payload's single media reference, or "".
func (p Payload) FirstMediaRef() model.ContentRef {
	if len(p.Media) == 0 {
		return ""
	}
	return p.Media[0].Item
}

// Uploader stores one post's rich content and returns a stable reference.
type Uploader interface {
	Upload(ctx context.Context, post model.Post) (model.ContentRef, error)
}

// Publisher turns a payload into a permanent, addressable social-graph entry.
type Publisher interface {
	Publish(ctx context.Context, payload Payload) (model.ThreadID, error)
}

var publishLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	publishLogger = l
}
