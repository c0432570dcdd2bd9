package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Kind identifies which payload variant a message carries.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindFile     Kind = "file"
	KindAudio    Kind = "audio"
	KindLocation Kind = "location"
	KindContact  Kind = "contact"
	KindSticker  Kind = "sticker"
	KindSystem   Kind = "system"
)

// Kinds lists every payload kind in wire order.
var Kinds = []Kind{KindText, KindImage, KindVideo, KindFile, KindAudio, KindLocation, KindContact, KindSticker, KindSystem}

// Valid reports whether k names a known payload kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Payload is the kind-specific body of a message. The set of implementations is closed:
// only the variant structs in this package satisfy it.
type Payload interface {
	Kind() Kind
	isPayload()
}

type TextPayload struct {
	Content string `json:"content" validate:"required,max=4096"`
}

type ImagePayload struct {
	FileURL string  `json:"fileUrl" validate:"required,max=2048"`
	Caption *string `json:"caption,omitempty" validate:"omitempty,max=1024"`
	Width   *int    `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height  *int    `json:"height,omitempty" validate:"omitempty,gt=0"`
}

type VideoPayload struct {
	FileURL  string   `json:"fileUrl" validate:"required,max=2048"`
	Caption  *string  `json:"caption,omitempty" validate:"omitempty,max=1024"`
	Duration *float64 `json:"duration,omitempty" validate:"omitempty,gt=0"`
	Width    *int     `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height   *int     `json:"height,omitempty" validate:"omitempty,gt=0"`
}

type FilePayload struct {
	FileURL  string  `json:"fileUrl" validate:"required,max=2048"`
	Caption  *string `json:"caption,omitempty" validate:"omitempty,max=1024"`
	FileName string  `json:"fileName" validate:"required,max=255"`
	FileSize int64   `json:"fileSize" validate:"required,gt=0"`
	FileType string  `json:"fileType" validate:"required,max=255"`
}

type AudioPayload struct {
	FileURL  string  `json:"fileUrl" validate:"required,max=2048"`
	Caption  *string `json:"caption,omitempty" validate:"omitempty,max=1024"`
	Duration float64 `json:"duration" validate:"required,gt=0"`
}

type LocationPayload struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Name      *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Address   *string  `json:"address,omitempty" validate:"omitempty,max=1024"`
}

type ContactPayload struct {
	ContactUserID uuid.UUID `json:"contactUserId" validate:"required"`
	ContactName   string    `json:"contactName" validate:"required,max=255"`
	ContactAvatar *string   `json:"contactAvatar,omitempty" validate:"omitempty,max=2048"`
}

type StickerPayload struct {
	StickerURL    string  `json:"stickerUrl" validate:"required,max=2048"`
	StickerPackID *string `json:"stickerPackId,omitempty" validate:"omitempty,max=255"`
}

// SystemPayload is emitted by the platform itself (order updates, foster notices...), not by a user.
type SystemPayload struct {
	Content    string  `json:"content" validate:"required,max=4096"`
	SystemType *string `json:"systemType,omitempty" validate:"omitempty,max=64"`
	RelatedID  *string `json:"relatedId,omitempty" validate:"omitempty,max=255"`
}

func (TextPayload) Kind() Kind     { return KindText }
func (ImagePayload) Kind() Kind    { return KindImage }
func (VideoPayload) Kind() Kind    { return KindVideo }
func (FilePayload) Kind() Kind     { return KindFile }
func (AudioPayload) Kind() Kind    { return KindAudio }
func (LocationPayload) Kind() Kind { return KindLocation }
func (ContactPayload) Kind() Kind  { return KindContact }
func (StickerPayload) Kind() Kind  { return KindSticker }
func (SystemPayload) Kind() Kind   { return KindSystem }

func (TextPayload) isPayload()     {}
func (ImagePayload) isPayload()    {}
func (VideoPayload) isPayload()    {}
func (FilePayload) isPayload()     {}
func (AudioPayload) isPayload()    {}
func (LocationPayload) isPayload() {}
func (ContactPayload) isPayload()  {}
func (StickerPayload) isPayload()  {}
func (SystemPayload) isPayload()   {}

var (
	ErrUnknownKind    = errors.New("unknown message kind")
	ErrInvalidPayload = errors.New("invalid message payload")
)

// DecodePayload restores the concrete variant for kind from its JSON form.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindText:
		p, err = decodeAs[TextPayload](raw)
	case KindImage:
		p, err = decodeAs[ImagePayload](raw)
	case KindVideo:
		p, err = decodeAs[VideoPayload](raw)
	case KindFile:
		p, err = decodeAs[FilePayload](raw)
	case KindAudio:
		p, err = decodeAs[AudioPayload](raw)
	case KindLocation:
		p, err = decodeAs[LocationPayload](raw)
	case KindContact:
		p, err = decodeAs[ContactPayload](raw)
	case KindSticker:
		p, err = decodeAs[StickerPayload](raw)
	case KindSystem:
		p, err = decodeAs[SystemPayload](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %v", ErrInvalidPayload, kind, err)
	}
	return p, nil
}

func decodeAs[T Payload](raw []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var validate = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so errors read like the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// The nil UUID counts as missing for "required".
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok {
			if id == uuid.Nil {
				return ""
			}
			return id.String()
		}
		return nil
	}, uuid.UUID{})
	return v
}

// ValidatePayload checks that p carries every field its kind requires.
func ValidatePayload(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if !p.Kind().Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind())
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s %s", ErrInvalidPayload, p.Kind(), strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
