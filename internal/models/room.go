package models

import (
	"strings"

	"github.com/lib/pq"
)

// DefaultMobilityCharacteristic is required by mobility constraints that do not name a tag.
const DefaultMobilityCharacteristic = "accessible"

// Room is a physical room available for allocation.
type Room struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Building        string         `db:"building" json:"building"`
	Capacity        int            `db:"capacity" json:"capacity"`
	Characteristics pq.StringArray `db:"characteristics" json:"characteristics"`
	RoomType        string         `db:"room_type" json:"room_type"`
}

// HasCharacteristic matches an equipment tag case-insensitively.
func (r Room) HasCharacteristic(tag string) bool {
	tag = normalizeTag(tag)
	if tag == "" {
		return false
	}
	for _, c := range r.Characteristics {
		if normalizeTag(c) == tag {
			return true
		}
	}
	return false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
