package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T { return &v }

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"text", TextPayload{Content: "Rex is ready for pickup"}, false},
		{"empty text", TextPayload{}, true},
		{"image", ImagePayload{FileURL: "https://cdn.example.com/rex.jpg", Width: ptr(640)}, false},
		{"image without url", ImagePayload{Caption: ptr("rex")}, true},
		{"image with zero width", ImagePayload{FileURL: "https://cdn.example.com/rex.jpg", Width: ptr(0)}, true},
		{"video", VideoPayload{FileURL: "https://cdn.example.com/rex.mp4"}, false},
		{"file", FilePayload{FileURL: "https://cdn.example.com/v.pdf", FileName: "vaccines.pdf", FileSize: 2048, FileType: "application/pdf"}, false},
		{"file without size", FilePayload{FileURL: "https://cdn.example.com/v.pdf", FileName: "vaccines.pdf", FileType: "application/pdf"}, true},
		{"audio", AudioPayload{FileURL: "https://cdn.example.com/bark.ogg", Duration: 1.5}, false},
		{"audio without duration", AudioPayload{FileURL: "https://cdn.example.com/bark.ogg"}, true},
		{"location", LocationPayload{Latitude: ptr(-33.86), Longitude: ptr(151.2)}, false},
		{"location on the null island", LocationPayload{Latitude: ptr(0.0), Longitude: ptr(0.0)}, false},
		{"location out of range", LocationPayload{Latitude: ptr(91.0), Longitude: ptr(0.0)}, true},
		{"location without coordinates", LocationPayload{Name: ptr("park")}, true},
		{"location without longitude", LocationPayload{Latitude: ptr(12.5)}, true},
		{"contact", ContactPayload{ContactUserID: uuid.New(), ContactName: "Dr. Paws"}, false},
		{"contact with nil user", ContactPayload{ContactUserID: uuid.Nil, ContactName: "Dr. Paws"}, true},
		{"sticker", StickerPayload{StickerURL: "https://cdn.example.com/paw.webp"}, false},
		{"sticker without url", StickerPayload{}, true},
		{"system", SystemPayload{Content: "Adoption approved", SystemType: ptr("adoption")}, false},
		{"nil", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.payload)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidatePayload() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("error %v does not wrap ErrInvalidPayload", err)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(KindLocation, []byte(`{"latitude":1.5,"longitude":2.5,"name":"Dog park"}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	loc, ok := p.(LocationPayload)
	if !ok || loc.Latitude == nil || *loc.Latitude != 1.5 || loc.Name == nil || *loc.Name != "Dog park" {
		t.Fatalf("decoded = %#v", p)
	}

	if p, err := DecodePayload(KindText, []byte("null")); err != nil || p != nil {
		t.Fatalf("null payload = %#v, %v", p, err)
	}
	if _, err := DecodePayload("hologram", []byte(`{}`)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unknown kind error = %v", err)
	}
	p, err = DecodePayload(KindLocation, []byte(`{"name":"park"}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if err := ValidatePayload(p); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("location without coordinates validated: %v", err)
	}
	if _, err := DecodePayload(KindText, []byte(`{"content":42}`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("malformed payload error = %v", err)
	}
}

func TestMessageJSONKeepsVariant(t *testing.T) {
	msg := Message{
		ID:             uuid.New(),
		ConversationID: DirectConversationID(uuid.New(), uuid.New()),
		Kind:           KindContact,
		Payload:        ContactPayload{ContactUserID: uuid.New(), ContactName: "Groomer"},
		Status:         StatusSent,
		CreatedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Payload != msg.Payload {
		t.Fatalf("payload = %#v, want %#v", back.Payload, msg.Payload)
	}

	msg.Recall(msg.CreatedAt.Add(time.Minute))
	raw, _ = json.Marshal(msg)
	back = Message{}
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal tombstone: %v", err)
	}
	if back.Payload != nil || back.Kind != KindContact || !back.IsRecalled() {
		t.Fatalf("tombstone = %+v", back)
	}
}

func TestStatusAdvances(t *testing.T) {
	tests := []struct {
		from, to MessageStatus
		want     bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusRead, true},
		{StatusRead, StatusDelivered, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusSent, StatusFailed, true},
		{StatusDelivered, StatusFailed, false},
		{StatusFailed, StatusSent, false},
		{StatusRecalled, StatusRead, false},
	}
	for _, tc := range tests {
		if got := tc.from.Advances(tc.to); got != tc.want {
			t.Errorf("%s.Advances(%s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
