package generation

import (
	"strings"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/image"
)

// Kind tags the input of a generation request
type Kind int

const (
	KindText Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// User-facing messages, one per outcome
const (
	MsgEnterText    = "Please enter some text"
	MsgUploadImage  = "Please upload an image"
	MsgTextSuccess  = "Flashcards generated successfully!"
	MsgImageSuccess = "Flashcards generated from image!"
	MsgTextFailed   = "Failed to generate flashcards"
	MsgImageFailed  = "Failed to process image"
)

// Request is study material submitted for generation. Only the field
// matching Kind is used.
type Request struct {
	Kind  Kind
	Text  string
	Image *image.Upload
}

// TextRequest creates a request for pasted text
func TextRequest(text string) Request {
	return Request{Kind: KindText, Text: text}
}

// ImageRequest creates a request for an uploaded image
func ImageRequest(img *image.Upload) Request {
	return Request{Kind: KindImage, Image: img}
}

// Validate checks the request locally. Text must not be blank; an image must
// be present. Format and size are left to the collaborator.
func (r Request) Validate() error {
	switch r.Kind {
	case KindText:
		if strings.TrimSpace(r.Text) == "" {
			return apperr.Validation("text", MsgEnterText)
		}
	case KindImage:
		if !r.Image.Present() {
			return apperr.Validation("image", MsgUploadImage)
		}
	default:
		return apperr.Validation("kind", "unknown request kind %d", int(r.Kind))
	}
	return nil
}

func (r Request) successMessage() string {
	if r.Kind == KindImage {
		return MsgImageSuccess
	}
	return MsgTextSuccess
}

func (r Request) failureMessage() string {
	if r.Kind == KindImage {
		return MsgImageFailed
	}
	return MsgTextFailed
}
