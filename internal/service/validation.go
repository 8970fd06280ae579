package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxContentLength = 10000
	MaxTitleLength   = 255
)

var (
	validate = newValidator()
	// used only to tell whether input has any text outside of tags
	plainText = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hastext", func(fl validator.FieldLevel) bool {
		return hasText(fl.Field().String())
	})
	return v
}

type contentInput struct {
	Content string `validate:"required,hastext,max=10000"`
}

type forumPostInput struct {
	Title   string `validate:"required,hastext,max=255"`
	Content string `validate:"required,hastext,max=10000"`
}

type reactionInput struct {
	Type string `validate:"required,oneof=like love helpful laugh wow sad angry"`
}

// cleanText trims surrounding whitespace. The text itself is stored as typed;
// escaping is left to whoever renders it.
func cleanText(s string) string {
	return strings.TrimSpace(s)
}

// hasText reports whether s still has visible text once tags are removed.
func hasText(s string) bool {
	return strings.TrimSpace(plainText.Sanitize(s)) != ""
}

func validationError(op string, err error) *Error {
	msg := "invalid input"
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "hastext":
			msg = field + " is required"
		case "max":
			msg = field + " must be at most " + fe.Param() + " characters"
		case "oneof":
			msg = field + " must be one of: " + fe.Param()
		default:
			msg = field + " is invalid"
		}
	}
	return &Error{Kind: KindValidationFailed, Op: op, Message: msg, Err: err}
}

func validateContent(op, raw string) (string, *Error) {
	in := contentInput{Content: cleanText(raw)}
	if err := validate.Struct(in); err != nil {
		return "", validationError(op, err)
	}
	return in.Content, nil
}

func validateForumPost(op, title, content string) (string, string, *Error) {
	in := forumPostInput{Title: cleanText(title), Content: cleanText(content)}
	if err := validate.Struct(in); err != nil {
		return "", "", validationError(op, err)
	}
	return in.Title, in.Content, nil
}

func validateReaction(op, reactionType string) (string, *Error) {
	in := reactionInput{Type: strings.ToLower(strings.TrimSpace(reactionType))}
	if err := validate.Struct(in); err != nil {
		return "", validationError(op, err)
	}
	return in.Type, nil
}
