// Package schema declares the per-template field descriptors and the
// validation rules the composer and orchestrator depend on.
package schema

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/jongan69/threadiverse/internal/model"
)

type FieldKind string

const (
	KindText       FieldKind = "text"
	KindLongText   FieldKind = "long-text"
	KindMediaList  FieldKind = "media-list"
	KindOptionList FieldKind = "option-list"
)

// Field describes one content field a template allows.
type Field struct {
	Name        string
	Kind        FieldKind
	Placeholder string

	// Bounds for list-kinded fields. Zero means unbounded.
	MinItems int
	MaxItems int
}

const (
	MinPollOptions = 2
	MaxPollOptions = 5
)

var (
	imagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)
	videoPattern = regexp.MustCompile(`(?i)\.(mp4|webm|ogg)$`)
)

var ErrInvalidMediaURL = errors.New("media URL must point to an image or video file")

// Fields returns the ordered field descriptors for a template. Unknown
// template ids fall back to a single freeform text field; there is no
// failure path.
func Fields(id model.TemplateID) []Field {
	switch id {
	case model.TemplateTextImage:
		return []Field{
			{Name: "text", Kind: KindLongText, Placeholder: "What's on your mind?"},
			{Name: "media", Kind: KindMediaList},
		}
	case model.TemplateArticle:
		return []Field{
			{Name: "title", Kind: KindText, Placeholder: "Article title"},
			{Name: "text", Kind: KindLongText, Placeholder: "Write your article..."},
		}
	case model.TemplatePoll:
		return []Field{
			{Name: "question", Kind: KindText, Placeholder: "Ask a question..."},
			{Name: "options", Kind: KindOptionList, MinItems: MinPollOptions, MaxItems: MaxPollOptions},
		}
	default:
		return []Field{
			{Name: "text", Kind: KindLongText, Placeholder: "What's on your mind?"},
		}
	}
}

// MediaTypeFor classifies a candidate media URL by its path extension,
// case-insensitively. The second return is false when the URL matches
// neither the image nor the video pattern.
func MediaTypeFor(rawURL string) (model.MediaType, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	switch {
	case imagePattern.MatchString(u.Path):
		return model.MediaImage, true
	case videoPattern.MatchString(u.Path):
		return model.MediaVideo, true
	default:
		return "", false
	}
}

// Validate checks a content value against its template's constraints. The
// field set itself is structural (each content variant carries exactly the
// fields its template declares); this checks the value-level rules.
func Validate(c model.Content) error {
	switch v := c.(type) {
	case *model.TextImageContent:
		for _, m := range v.Media {
			if _, ok := MediaTypeFor(m.URL); !ok {
				return fmt.Errorf("media item %q: %w", m.URL, ErrInvalidMediaURL)
			}
		}
		return nil
	case *model.ArticleContent:
		return nil
	case *model.PollContent:
		if n := len(v.Options); n < MinPollOptions || n > MaxPollOptions {
			return fmt.Errorf("poll must have between %d and %d options, got %d", MinPollOptions, MaxPollOptions, n)
		}
		return nil
	case *model.FreeformContent:
		return nil
	default:
		return fmt.Errorf("unknown content type %T", c)
	}
}
