package chat_test

import (
	"strings"
	"testing"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	ref := "uploads/1.jpg"
	tests := []struct {
		name    string
		kind    models.MessageType
		content string
		media   *string
		loc     *chat.LocationData
		wantErr bool
	}{
		{"text", models.MessageText, "hi", nil, nil, false},
		{"empty text", models.MessageText, "  ", nil, nil, true},
		{"image without caption", models.MessageImage, "", &ref, nil, false},
		{"image without ref", models.MessageImage, "look", nil, nil, true},
		{"location", models.MessageLocation, "", nil, &chat.LocationData{Latitude: 50.4, Longitude: 30.5, Address: "Kyiv"}, false},
		{"location missing data", models.MessageLocation, "", nil, nil, true},
		{"live location out of range", models.MessageLiveLocation, "", nil, &chat.LocationData{Latitude: 91}, true},
		{"unknown type", "video", "x", nil, nil, true},
		{"too long", models.MessageText, strings.Repeat("a", 4001), nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := chat.ParsePayload(tt.kind, tt.content, tt.media, tt.loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind())
		})
	}
}

func TestDecodePayload_Location(t *testing.T) {
	msg := models.Message{
		Type:         models.MessageLocation,
		LocationData: []byte(`{"latitude":1.5,"longitude":2.5,"address":"here"}`),
	}
	p, err := chat.DecodePayload(msg)
	require.NoError(t, err)
	assert.Equal(t, chat.Location{Latitude: 1.5, Longitude: 2.5, Address: "here"}, p)
}
