package records

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewValidates(t *testing.T) {
	loc := Location{Latitude: 51.5, Longitude: -0.09}

	_, err := New(1, "", loc, nil)
	assert.ErrorIs(t, err, ErrNoHandle)

	for _, bad := range []Location{
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: -180.5},
		{Latitude: math.NaN(), Longitude: 0},
	} {
		_, err := New(1, "alice", bad, nil)
		assert.ErrorIs(t, err, ErrInvalidLocation, "location %v", bad)
	}

	rec, err := New(1, "alice", loc, nil)
	require.NoError(t, err)
	assert.Equal(t, loc, rec.Location)
	assert.Nil(t, rec.Note)
}

func TestTruncateNote(t *testing.T) {
	exact := strings.Repeat("a", MaxNoteLength)
	assert.Equal(t, exact, TruncateNote(exact))

	long := strings.Repeat("b", MaxNoteLength+40)
	assert.Equal(t, strings.Repeat("b", MaxNoteLength), TruncateNote(long))

	// Counted in characters, not bytes.
	cyr := strings.Repeat("ж", MaxNoteLength+1)
	got := TruncateNote(cyr)
	assert.Equal(t, MaxNoteLength, len([]rune(got)))
	assert.Equal(t, strings.Repeat("ж", MaxNoteLength), got)

	short := "hello, I'm near the station"
	assert.Equal(t, short, TruncateNote(short))
}

func TestNewTruncatesNote(t *testing.T) {
	rec, err := New(7, "bob", Location{Latitude: 1, Longitude: 2}, strPtr(strings.Repeat("x", 300)))
	require.NoError(t, err)
	require.NotNil(t, rec.Note)
	assert.Len(t, *rec.Note, MaxNoteLength)
}

func TestRecordJSON(t *testing.T) {
	rec := Record{
		UserID:   42,
		Username: "carol",
		Location: Location{Latitude: 51.5, Longitude: -0.09},
		Note:     strPtr("ring twice"),
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"userId":42,"username":"carol","location":[51.5,-0.09],"additionalInformation":"ring twice"}`,
		string(raw))

	rec.Note = nil
	raw, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"userId":42,"username":"carol","location":[51.5,-0.09],"additionalInformation":null}`,
		string(raw))
}
