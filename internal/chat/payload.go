package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/geo"
	"givebox/backend/internal/models"
)

// Payload is the typed body of a message. Exactly one of Text, Image,
// Location or LiveLocation.
type Payload interface {
	Kind() models.MessageType
	validate() error
	apply(msg *models.Message) error
}

type Text struct {
	Body string
}

type Image struct {
	MediaRef string
	Caption  string
}

type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// LiveLocation marks the start of a live session in the log.
type LiveLocation struct {
	Latitude  float64
	Longitude float64
}

// LocationData is the JSON shape of messages.location_data.
type LocationData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

func (Text) Kind() models.MessageType         { return models.MessageText }
func (Image) Kind() models.MessageType        { return models.MessageImage }
func (Location) Kind() models.MessageType     { return models.MessageLocation }
func (LiveLocation) Kind() models.MessageType { return models.MessageLiveLocation }

func (p Text) validate() error {
	if strings.TrimSpace(p.Body) == "" {
		return apperr.Invalid("text message must not be empty")
	}
	return checkContent(p.Body)
}

func (p Image) validate() error {
	if strings.TrimSpace(p.MediaRef) == "" {
		return apperr.Invalid("image message needs a media reference")
	}
	return checkContent(p.Caption)
}

func (p Location) validate() error {
	if err := geo.CheckCoordinates(p.Latitude, p.Longitude); err != nil {
		return err
	}
	return checkContent(p.Address)
}

func (p LiveLocation) validate() error {
	return geo.CheckCoordinates(p.Latitude, p.Longitude)
}

func (p Text) apply(msg *models.Message) error {
	msg.Content = p.Body
	return nil
}

func (p Image) apply(msg *models.Message) error {
	ref := p.MediaRef
	msg.MediaRef = &ref
	msg.Content = p.Caption
	return nil
}

func (p Location) apply(msg *models.Message) error {
	return setLocation(msg, LocationData{Latitude: p.Latitude, Longitude: p.Longitude, Address: p.Address})
}

func (p LiveLocation) apply(msg *models.Message) error {
	return setLocation(msg, LocationData{Latitude: p.Latitude, Longitude: p.Longitude})
}

func setLocation(msg *models.Message, loc LocationData) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	msg.LocationData = raw
	return nil
}

func checkContent(s string) error {
	if n := utf8.RuneCountInString(s); n > config.MaxMessageContentLen {
		return apperr.Invalid("content is %d characters, limit %d", n, config.MaxMessageContentLen)
	}
	return nil
}

// ParsePayload builds a payload from wire fields.
func ParsePayload(kind models.MessageType, content string, mediaRef *string, loc *LocationData) (Payload, error) {
	var p Payload
	switch kind {
	case models.MessageText, "":
		p = Text{Body: content}
	case models.MessageImage:
		ref := ""
		if mediaRef != nil {
			ref = *mediaRef
		}
		p = Image{MediaRef: ref, Caption: content}
	case models.MessageLocation:
		if loc == nil {
			return nil, apperr.Invalid("location message needs location data")
		}
		p = Location{Latitude: loc.Latitude, Longitude: loc.Longitude, Address: loc.Address}
	case models.MessageLiveLocation:
		if loc == nil {
			return nil, apperr.Invalid("live location message needs location data")
		}
		p = LiveLocation{Latitude: loc.Latitude, Longitude: loc.Longitude}
	default:
		return nil, apperr.Invalid("unknown message type %q", kind)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodePayload recovers the typed payload of a stored message.
func DecodePayload(msg models.Message) (Payload, error) {
	var loc *LocationData
	if len(msg.LocationData) > 0 && string(msg.LocationData) != "null" {
		loc = &LocationData{}
		if err := json.Unmarshal(msg.LocationData, loc); err != nil {
			return nil, apperr.Invalid("malformed location data: %v", err)
		}
	}
	return ParsePayload(msg.Type, msg.Content, msg.MediaRef, loc)
}

var errMissingPayload = apperr.Invalid("message payload is required")
