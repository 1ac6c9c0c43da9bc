package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/go-playground/validator/v10"
)

const (
	MinEditLength = 10
	MaxEditLength = 10000
)

type OptimizeRequest struct {
	TranscriptionID string   `json:"transcriptionId" validate:"required"`
	Platforms       []string `json:"platforms" validate:"omitempty,unique,dive,oneof=linkedin twitter reddit"`
	Structured      bool     `json:"structured"`
}

type EditRequest struct {
	TranscriptionID      string            `json:"transcriptionId" validate:"required"`
	UserID               string            `json:"userId" validate:"max=128"`
	UpdatedText          string            `json:"updatedText" validate:"omitempty,min=10,max=10000"`
	UpdatedOptimizations map[string]string `json:"updatedOptimizations" validate:"omitempty,dive,keys,oneof=linkedin twitter reddit,endkeys,min=10,max=10000"`
}

type CreateUserRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type VerifyPaymentRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Status string `json:"status" validate:"required"`
}

type SpeechJSONRequest struct {
	AudioData string `json:"audioData" validate:"required"`
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	UserID    string `json:"userId" validate:"max=128"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct runs the tag rules of req and converts failures into a
// *ports.ValidationError keyed by json field name.
func Struct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ports.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = describe(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	}
	return "failed rule " + fe.Tag()
}

func Optimize(req OptimizeRequest) error {
	return Struct(req)
}

func Edit(req EditRequest) error {
	if err := Struct(req); err != nil {
		return err
	}
	if req.UpdatedText == "" && len(req.UpdatedOptimizations) == 0 {
		return ports.NewValidationError("updatedText", "updatedText or updatedOptimizations is required")
	}
	return nil
}

// Platforms converts validated names; an empty list means every platform.
func Platforms(names []string) []models.Platform {
	if len(names) == 0 {
		return models.AllPlatforms()
	}
	out := make([]models.Platform, 0, len(names))
	for _, n := range names {
		out = append(out, models.Platform(n))
	}
	return out
}
