package model

import (
	"encoding/json"
	"fmt"
)

// TemplateID names the content template a post was composed with.
type TemplateID string

const (
	TemplateTextImage TemplateID = "text-image"
	TemplateArticle   TemplateID = "article"
	TemplatePoll      TemplateID = "poll"

	// TemplateFreeform is the fallback for unrecognized template ids: a single
	// text field, never an error.
	TemplateFreeform TemplateID = "freeform"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type MediaItem struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
}

// Content is the closed set of per-template post bodies. Each variant
// serializes to exactly the field set its template declares; the store
// contract round-trips those field names verbatim.
type Content interface {
	Template() TemplateID
	Clone() Content
}

type TextImageContent struct {
	Text  string      `json:"text"`
	Media []MediaItem `json:"media"`
}

func (c *TextImageContent) Template() TemplateID { return TemplateTextImage }

func (c *TextImageContent) Clone() Content {
	cp := *c
	cp.Media = append([]MediaItem(nil), c.Media...)
	if cp.Media == nil {
		cp.Media = []MediaItem{}
	}
	return &cp
}

type ArticleContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (c *ArticleContent) Template() TemplateID { return TemplateArticle }

func (c *ArticleContent) Clone() Content {
	cp := *c
	return &cp
}

type PollContent struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (c *PollContent) Template() TemplateID { return TemplatePoll }

func (c *PollContent) Clone() Content {
	cp := *c
	cp.Options = append([]string(nil), c.Options...)
	return &cp
}

type FreeformContent struct {
	Text string `json:"text"`
}

func (c *FreeformContent) Template() TemplateID { return TemplateFreeform }

func (c *FreeformContent) Clone() Content {
	cp := *c
	return &cp
}

// postEnvelope is the wire shape of a post in the draft store.
type postEnvelope struct {
	ID         PostID          `json:"id"`
	TemplateID TemplateID      `json:"templateId"`
	Content    json.RawMessage `json:"content"`
}

func (p Post) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("error marshalling post content: %w", err)
	}
	return json.Marshal(postEnvelope{
		ID:         p.ID,
		TemplateID: p.TemplateID,
		Content:    content,
	})
}

func (p *Post) UnmarshalJSON(data []byte) error {
	var env postEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("error unmarshalling post: %w", err)
	}

	content := EmptyContent(env.TemplateID)
	if len(env.Content) > 0 {
		if err := json.Unmarshal(env.Content, content); err != nil {
			return fmt.Errorf("error unmarshalling %s content: %w", env.TemplateID, err)
		}
	}

	p.ID = env.ID
	p.TemplateID = env.TemplateID
	p.Content = content
	return nil
}

// EmptyContent returns the zero content value for a template. Unknown template
// ids degrade to freeform rather than erroring.
func EmptyContent(id TemplateID) Content {
	switch id {
	case TemplateTextImage:
		return &TextImageContent{Media: []MediaItem{}}
	case TemplateArticle:
		return &ArticleContent{}
	case TemplatePoll:
		return &PollContent{Options: []string{"", ""}}
	default:
		return &FreeformContent{}
	}
}
