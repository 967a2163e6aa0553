package thingspeak

import (
	"bytes"
	"encoding/json"
)

// FieldValue is a feed value as sent by ThingSpeak. The API encodes
// numbers as strings and missing values as null; both shapes decode here
// and the distinction between "absent" and "empty" is preserved.
type FieldValue struct {
	raw string
	set bool
}

// NewFieldValue returns a present value holding s
func NewFieldValue(s string) FieldValue {
	return FieldValue{raw: s, set: true}
}

// UnmarshalJSON accepts a string, a bare number or null
func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = FieldValue{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FieldValue{raw: s, set: true}
		return nil
	}
	*v = FieldValue{raw: string(b), set: true}
	return nil
}

// MarshalJSON writes the value back the way ThingSpeak sends it
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// Valid reports whether the value was present in the payload
func (v FieldValue) Valid() bool { return v.set }

// String returns the raw text, "" when absent
func (v FieldValue) String() string { return v.raw }

// FeedEntry is one entry of a channel feed
type FeedEntry struct {
	EntryID   int64      `json:"entry_id"`
	CreatedAt string     `json:"created_at"`
	Field1    FieldValue `json:"field1,omitzero"`
	Field2    FieldValue `json:"field2,omitzero"`
	Field3    FieldValue `json:"field3,omitzero"`
	Field4    FieldValue `json:"field4,omitzero"`
	Field5    FieldValue `json:"field5,omitzero"`
	Field6    FieldValue `json:"field6,omitzero"`
	Field7    FieldValue `json:"field7,omitzero"`
	Field8    FieldValue `json:"field8,omitzero"`
	Latitude  FieldValue `json:"latitude,omitzero"`
	Longitude FieldValue `json:"longitude,omitzero"`
	Elevation FieldValue `json:"elevation,omitzero"`
	Status    FieldValue `json:"status,omitzero"`
}

// Field returns fieldN, or an absent value for n outside 1..8
func (e FeedEntry) Field(n int) FieldValue {
	switch n {
	case 1:
		return e.Field1
	case 2:
		return e.Field2
	case 3:
		return e.Field3
	case 4:
		return e.Field4
	case 5:
		return e.Field5
	case 6:
		return e.Field6
	case 7:
		return e.Field7
	case 8:
		return e.Field8
	}
	return FieldValue{}
}

// ChannelInfo is the channel header returned alongside feeds
type ChannelInfo struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Latitude    FieldValue `json:"latitude,omitzero"`
	Longitude   FieldValue `json:"longitude,omitzero"`
	Field1      string     `json:"field1,omitempty"`
	Field2      string     `json:"field2,omitempty"`
	Field3      string     `json:"field3,omitempty"`
	Field4      string     `json:"field4,omitempty"`
	Field5      string     `json:"field5,omitempty"`
	Field6      string     `json:"field6,omitempty"`
	Field7      string     `json:"field7,omitempty"`
	Field8      string     `json:"field8,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	UpdatedAt   string     `json:"updated_at,omitempty"`
	LastEntryID int64      `json:"last_entry_id,omitempty"`
}

// ChannelFeed is the body of feeds.json, fields/N.json and status.json
type ChannelFeed struct {
	Channel ChannelInfo `json:"channel"`
	Feeds   []FeedEntry `json:"feeds"`
}

// Latest returns the newest entry. ThingSpeak orders feeds oldest first.
func (f *ChannelFeed) Latest() (FeedEntry, bool) {
	if f == nil || len(f.Feeds) == 0 {
		return FeedEntry{}, false
	}
	return f.Feeds[len(f.Feeds)-1], true
}
