package idcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFromObjectIDRoundTrip(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("614a80b81ad8c60001b7d5f3")
	require.NoError(t, err)

	id := FromObjectID(oid)
	assert.Equal(t, "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3", id.String())

	back, err := FromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), back.String())

	roundTrippedOID, err := back.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, oid, roundTrippedOID)
}

func TestFromStringDateOnlyDerivesSynthesizedObjectID(t *testing.T) {
	id, err := FromString("2021-09-22")
	require.NoError(t, err)

	want, err := primitive.ObjectIDFromHex("614a72000000000000000000")
	require.NoError(t, err)

	got, err := id.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDefaultStartDateMapsToZeroObjectID(t *testing.T) {
	id, err := FromString("1970-01-01")
	require.NoError(t, err)

	got, err := id.ObjectID()
	require.NoError(t, err)

	want, err := primitive.ObjectIDFromHex("000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromStringRejectsInvalidFormat(t *testing.T) {
	for _, s := range []string{
		"not-a-date",
		"2021-09-22T01:02:48",   // missing offset
		"2021-09-22|deadbeef",   // id too short
		"2021-13-50T01:02:48+00:00",
	} {
		_, err := FromString(s)
		assert.Error(t, err, s)
	}
}

func TestSortability(t *testing.T) {
	earlier, err := primitive.ObjectIDFromHex("5f50b9c90000000000000001")
	require.NoError(t, err)
	later, err := primitive.ObjectIDFromHex("614a80b81ad8c60001b7d5f3")
	require.NoError(t, err)

	a := FromObjectID(earlier).String()
	b := FromObjectID(later).String()
	assert.Less(t, a, b)
}

func TestStringFormatsUTCEvenForNonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	id := IncrementalId{Time: time.Date(2021, 9, 22, 1, 2, 48, 0, loc)}
	assert.Equal(t, "2021-09-22T06:02:48+00:00", id.String())
}
