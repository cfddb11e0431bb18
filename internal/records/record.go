// Package records defines the map entry a finished intake dialogue produces
// and its PostgreSQL repository.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxNoteLength is the longest note kept, in characters. Longer notes are cut.
const MaxNoteLength = 250

var (
	// ErrNoHandle means the user has no public username to link from the map.
	ErrNoHandle = errors.New("records: user has no public handle")
	// ErrInvalidLocation means the coordinates are outside the valid range.
	ErrInvalidLocation = errors.New("records: coordinates out of range")
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinates lie on the globe.
func (l Location) Valid() bool {
	return !math.IsNaN(l.Latitude) && !math.IsNaN(l.Longitude) &&
		l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// MarshalJSON renders the location as [lat, lon].
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Latitude, l.Longitude})
}

func (l Location) String() string {
	return fmt.Sprintf("%.5f,%.5f", l.Latitude, l.Longitude)
}

// Record is one entry on the map.
type Record struct {
	UserID   int64    `json:"userId" db:"user_id"`
	Username string   `json:"username" db:"username"`
	Location Location `json:"location" db:"-"`
	Note     *string  `json:"additionalInformation" db:"additional_information"`
}

// New builds a validated record, truncating the note to MaxNoteLength.
func New(userID int64, username string, loc Location, note *string) (Record, error) {
	if username == "" {
		return Record{}, ErrNoHandle
	}
	if !loc.Valid() {
		return Record{}, ErrInvalidLocation
	}
	rec := Record{UserID: userID, Username: username, Location: loc}
	if note != nil {
		trimmed := TruncateNote(*note)
		rec.Note = &trimmed
	}
	return rec, nil
}

// TruncateNote cuts s to at most MaxNoteLength characters.
func TruncateNote(s string) string {
	if utf8.RuneCountInString(s) <= MaxNoteLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxNoteLength])
}
