package common_test

import (
	"encoding/json"
	"testing"

	"github.com/alwitt/clipsync/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestURIScheme(t *testing.T) {
	assert := assert.New(t)

	// Case 0: common schemes
	assert.Equal("file", common.NewURI("file:///videos/a.mp4").Scheme())
	assert.Equal("content", common.NewURI("content://media/external/video/42").Scheme())
	assert.Equal("https", common.NewURI("HTTPS://Host.Example.com/x").Scheme())

	// Case 1: bare paths have no scheme
	assert.Equal("", common.NewURI("/videos/a.mp4").Scheme())
	assert.Equal("", common.NewURI("relative/path.mp4").Scheme())

	// Case 2: a Windows drive letter is not a scheme
	assert.Equal("", common.NewURI(`C:\videos\a.mp4`).Scheme())

	// Case 3: zero URI
	assert.True(common.URI{}.IsZero())
	assert.Equal("", common.URI{}.Scheme())
}

func TestURIJSONPreservesRawForm(t *testing.T) {
	assert := assert.New(t)

	raw := "file:///videos/with space/ünïcode.mp4?x=1&y=2#frag"
	encoded, err := json.Marshal(common.NewURI(raw))
	assert.Nil(err)

	var decoded common.URI
	assert.Nil(json.Unmarshal(encoded, &decoded))
	assert.Equal(raw, decoded.String())

	// JSON null maps to the zero URI
	assert.Nil(json.Unmarshal([]byte("null"), &decoded))
	assert.True(decoded.IsZero())
}

func TestAnnotationPositionClamping(t *testing.T) {
	assert := assert.New(t)

	// Case 0: in range values pass through
	pos := common.NewAnnotationPosition(0.25, 0.75)
	assert.Equal(0.25, pos.X())
	assert.Equal(0.75, pos.Y())

	// Case 1: each axis clamps independently
	pos = common.NewAnnotationPosition(-0.5, 1.5)
	assert.Equal(0.0, pos.X())
	assert.Equal(1.0, pos.Y())

	// Case 2: clamping applies on set
	pos.Set(2.0, 0.5)
	assert.Equal(1.0, pos.X())
	assert.Equal(0.5, pos.Y())
}

func TestUserColor(t *testing.T) {
	assert := assert.New(t)

	dana := common.User{Name: "dana", URI: common.NewURI("mailto:dana@example.com")}
	kim := common.User{Name: "kim", URI: common.NewURI("mailto:kim@example.com")}

	// The color is a pure function of the identity URI
	assert.Equal(dana.Color(), dana.Color())
	assert.Equal(
		dana.Color(),
		common.User{Name: "display name changed", URI: dana.URI}.Color(),
	)
	assert.NotEqual(dana.Color(), kim.Color())

	// Always fully opaque
	assert.Equal(uint32(0xff000000), dana.Color()&0xff000000)
	assert.Equal(uint32(0xff000000), kim.Color()&0xff000000)
}

func TestVideoLocality(t *testing.T) {
	assert := assert.New(t)

	video := common.Video{ID: uuid.New()}

	// Case 0: device-local schemes
	for _, raw := range []string{
		"file:///videos/a.mp4", "content://media/external/video/42", "/videos/a.mp4",
	} {
		video.VideoURI = common.NewURI(raw)
		assert.True(video.IsLocal(), "uri: %s", raw)
		assert.False(video.IsRemote(), "uri: %s", raw)
	}

	// Case 1: remote schemes
	for _, raw := range []string{
		"https://host.example.com/v1/blob/a", "s3://bucket/videos/a/video.mp4",
	} {
		video.VideoURI = common.NewURI(raw)
		assert.False(video.IsLocal(), "uri: %s", raw)
		assert.True(video.IsRemote(), "uri: %s", raw)
	}
}

func TestVideoPlaybackURI(t *testing.T) {
	assert := assert.New(t)

	video := common.Video{
		ID:       uuid.New(),
		VideoURI: common.NewURI("https://host.example.com/v1/blob/a"),
		ThumbURI: common.NewURI("https://host.example.com/v1/blob/a/thumb"),
	}

	// Without cached copies playback uses the primary URI
	assert.False(video.HasCachedFiles())
	assert.Equal(video.VideoURI, video.PlaybackURI())

	// The cached copy takes precedence once present
	video.VideoCacheURI = common.NewURI("file:///cache/a.mp4")
	assert.False(video.HasCachedFiles())
	assert.Equal(video.VideoCacheURI, video.PlaybackURI())

	video.ThumbCacheURI = common.NewURI("file:///cache/a.jpg")
	assert.True(video.HasCachedFiles())
}

func TestVideoRevisionBumps(t *testing.T) {
	assert := assert.New(t)

	video := common.Video{ID: uuid.New(), Title: "before", EndTime: -1}
	assert.Equal(int64(0), video.Revision)

	video.Rename("after")
	assert.Equal("after", video.Title)
	assert.Equal(int64(1), video.Revision)

	video.SetTrimWindow(1000, 5000)
	assert.Equal(int64(1000), video.StartTime)
	assert.Equal(int64(5000), video.EndTime)
	assert.Equal(int64(2), video.Revision)

	video.AddAnnotation(common.Annotation{Time: 1500, Text: "note"})
	assert.Len(video.Annotations, 1)
	assert.Equal(int64(3), video.Revision)
}

func TestUserEmptySentinel(t *testing.T) {
	assert := assert.New(t)

	assert.True(common.EmptyUser.IsEmpty())
	assert.True(common.User{}.IsEmpty())
	assert.False(common.User{Name: "dana"}.IsEmpty())
}
