package common_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestManifestRoundTrip(t *testing.T) {
	assert := assert.New(t)

	author := common.User{
		Name: "dana", URI: common.NewURI("mailto:dana@example.com"),
	}
	original := common.Video{
		ID:        uuid.New(),
		Title:     "harbor at dusk",
		Tag:       "travel",
		Rotation:  common.Rotation270,
		Date:      time.Date(2023, 6, 14, 19, 2, 11, 0, time.UTC),
		Revision:  7,
		StartTime: 1500,
		EndTime:   -1,
		// The raw string form must survive exactly, spaces and fragment included
		VideoURI:             common.NewURI("file:///videos/harbor at dusk.mp4?v=1#t=90"),
		ThumbURI:             common.NewURI("file:///thumbs/harbor.jpg"),
		DeleteURI:            common.NewURI("https://host.example.com/v1/blob/abc/delete"),
		RotationCompensation: common.Rotation90,
		Author:               author,
		Location: &common.GeoLocation{
			Latitude: 47.6097, Longitude: -122.3331, Accuracy: 12.5,
		},
		Annotations: []common.Annotation{
			{
				Time:     2500,
				Position: common.NewAnnotationPosition(0.25, 0.75),
				Text:     "ferry passing",
				Author:   author,
			},
			{
				Time:     8100,
				Position: common.NewAnnotationPosition(0.5, 0.5),
				Text:     "",
				Author:   common.User{Name: "kim", URI: common.NewURI("mailto:kim@example.com")},
			},
		},
	}

	encoded, err := common.EncodeManifest(original)
	assert.Nil(err)

	decoded, err := common.DecodeManifest(encoded)
	assert.Nil(err)

	assert.Equal(original.ID, decoded.ID)
	assert.Equal(common.CurrentManifestVersion, decoded.FormatVersion)
	assert.Equal(original.Title, decoded.Title)
	assert.Equal(original.Tag, decoded.Tag)
	assert.Equal(original.Rotation, decoded.Rotation)
	assert.True(original.Date.Equal(decoded.Date))
	assert.Equal(original.Revision, decoded.Revision)
	assert.Equal(original.StartTime, decoded.StartTime)
	assert.Equal(original.EndTime, decoded.EndTime)
	assert.Equal(original.VideoURI.String(), decoded.VideoURI.String())
	assert.Equal(original.ThumbURI.String(), decoded.ThumbURI.String())
	assert.Equal(original.DeleteURI.String(), decoded.DeleteURI.String())
	assert.Equal(original.RotationCompensation, decoded.RotationCompensation)
	assert.Equal(original.Author, decoded.Author)
	assert.NotNil(decoded.Location)
	assert.Equal(original.Location.Latitude, decoded.Location.Latitude)
	assert.Equal(original.Location.Longitude, decoded.Location.Longitude)
	assert.Equal(original.Location.Accuracy, decoded.Location.Accuracy)
	assert.Len(decoded.Annotations, 2)
	assert.Equal(original.Annotations[0].Time, decoded.Annotations[0].Time)
	assert.Equal(original.Annotations[0].Position.X(), decoded.Annotations[0].Position.X())
	assert.Equal(original.Annotations[0].Position.Y(), decoded.Annotations[0].Position.Y())
	assert.Equal(original.Annotations[0].Text, decoded.Annotations[0].Text)
	assert.Equal(original.Annotations[1].Author, decoded.Annotations[1].Author)
}

func TestManifestDecodeErrors(t *testing.T) {
	assert := assert.New(t)

	// Case 0: empty stream
	{
		_, err := common.DecodeManifest(nil)
		assert.NotNil(err)
		var decodeErr *common.DecodeError
		assert.ErrorAs(err, &decodeErr)
	}

	// Case 1: not JSON at all
	{
		_, err := common.DecodeManifest([]byte("ftypisom not a manifest"))
		assert.NotNil(err)
		var decodeErr *common.DecodeError
		assert.ErrorAs(err, &decodeErr)
	}

	// Case 2: truncated document
	{
		_, err := common.DecodeManifest([]byte(`{"id": "abc", "title":`))
		assert.NotNil(err)
		var decodeErr *common.DecodeError
		assert.ErrorAs(err, &decodeErr)
	}

	// Case 3: version from a future build
	{
		payload := fmt.Sprintf(
			`{"id": "%s", "formatVersion": %d}`, uuid.New(), common.CurrentManifestVersion+1,
		)
		_, err := common.DecodeManifest([]byte(payload))
		assert.NotNil(err)
		var decodeErr *common.DecodeError
		assert.ErrorAs(err, &decodeErr)
	}
}

func TestManifestVersionZeroMigration(t *testing.T) {
	assert := assert.New(t)

	videoID := uuid.New()
	// Version 0: annotation time in fractional seconds, capture location flat
	payload := fmt.Sprintf(`{
		"id": "%s",
		"title": "old recording",
		"latitude": 35.6895,
		"longitude": 139.6917,
		"accuracy": 8.5,
		"annotations": [
			{"time": 1.5, "position": {"x": 0.5, "y": 0.5}, "text": "first"},
			{"time": 12.25, "position": {"x": 0.1, "y": 0.9}, "text": "second"}
		]
	}`, videoID)

	decoded, err := common.DecodeManifest([]byte(payload))
	assert.Nil(err)

	assert.Equal(videoID, decoded.ID)
	assert.Equal(common.CurrentManifestVersion, decoded.FormatVersion)
	assert.Len(decoded.Annotations, 2)
	assert.Equal(int64(1500), decoded.Annotations[0].Time)
	assert.Equal(int64(12250), decoded.Annotations[1].Time)
	assert.NotNil(decoded.Location)
	assert.Equal(35.6895, decoded.Location.Latitude)
	assert.Equal(139.6917, decoded.Location.Longitude)
	assert.Equal(float32(8.5), decoded.Location.Accuracy)
}

func TestManifestVersionOneMigration(t *testing.T) {
	assert := assert.New(t)

	videoID := uuid.New()
	// Version 1: annotation time already in milliseconds, location still flat
	payload := fmt.Sprintf(`{
		"id": "%s",
		"formatVersion": 1,
		"latitude": -33.8688,
		"longitude": 151.2093,
		"annotations": [
			{"time": 2500, "position": {"x": 0.5, "y": 0.5}, "text": "unchanged"}
		]
	}`, videoID)

	decoded, err := common.DecodeManifest([]byte(payload))
	assert.Nil(err)

	assert.Equal(common.CurrentManifestVersion, decoded.FormatVersion)
	// Millisecond times must not be rescaled a second time
	assert.Equal(int64(2500), decoded.Annotations[0].Time)
	assert.NotNil(decoded.Location)
	assert.Equal(-33.8688, decoded.Location.Latitude)
	assert.Equal(151.2093, decoded.Location.Longitude)
	assert.Equal(float32(0), decoded.Location.Accuracy)
}

func TestManifestDecodeClampsPositions(t *testing.T) {
	assert := assert.New(t)

	payload := fmt.Sprintf(`{
		"id": "%s",
		"formatVersion": %d,
		"annotations": [
			{"time": 100, "position": {"x": 1.7, "y": -0.3}, "text": "off screen"}
		]
	}`, uuid.New(), common.CurrentManifestVersion)

	decoded, err := common.DecodeManifest([]byte(payload))
	assert.Nil(err)
	assert.Equal(1.0, decoded.Annotations[0].Position.X())
	assert.Equal(0.0, decoded.Annotations[0].Position.Y())
}

func TestManifestDecodeInternsAuthors(t *testing.T) {
	assert := assert.New(t)

	author := `{"name": "dana", "uri": "mailto:dana@example.com"}`
	payload := fmt.Sprintf(`{
		"id": "%s",
		"formatVersion": %d,
		"author": %s,
		"annotations": [
			{"time": 100, "position": {"x": 0.1, "y": 0.1}, "text": "a", "author": %s},
			{"time": 200, "position": {"x": 0.2, "y": 0.2}, "text": "b", "author": %s}
		]
	}`, uuid.New(), common.CurrentManifestVersion, author, author, author)

	decoded, err := common.DecodeManifest([]byte(payload))
	assert.Nil(err)
	assert.Equal(decoded.Author, decoded.Annotations[0].Author)
	assert.Equal(decoded.Annotations[0].Author, decoded.Annotations[1].Author)
}

func TestUserInternTable(t *testing.T) {
	assert := assert.New(t)

	uut := common.NewUserInternTable()

	first := common.User{Name: "dana", URI: common.NewURI("mailto:dana@example.com")}
	second := common.User{Name: "dana", URI: common.NewURI("mailto:dana@example.com")}
	third := common.User{Name: "kim", URI: common.NewURI("mailto:kim@example.com")}

	assert.Equal(first, uut.Intern(first))
	assert.Equal(first, uut.Intern(second))
	assert.Equal(third, uut.Intern(third))
	assert.Equal(2, uut.Len())
}

func TestManifestInfoProjection(t *testing.T) {
	assert := assert.New(t)

	video := common.Video{
		ID:       uuid.New(),
		Title:    "clip",
		Tag:      "family",
		Date:     time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC),
		VideoURI: common.NewURI("https://host.example.com/v1/blob/clip"),
		ThumbURI: common.NewURI("file:///thumbs/clip.jpg"),
		Annotations: []common.Annotation{
			{Time: 10, Text: "not part of the projection"},
		},
	}

	encoded, err := common.EncodeManifest(video)
	assert.Nil(err)

	info, err := common.DecodeManifestInfo(encoded)
	assert.Nil(err)
	assert.Equal(video.ID, info.ID)
	assert.Equal(video.Title, info.Title)
	assert.Equal(video.Tag, info.Tag)
	assert.True(video.Date.Equal(info.Date))
	assert.Equal(video.VideoURI.String(), info.VideoURI.String())
	assert.Equal(video.ThumbURI.String(), info.ThumbURI.String())
	assert.False(info.IsLocal())
}
