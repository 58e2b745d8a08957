package remote

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/alwitt/goutils"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

func TestRestBlobHostUpload(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	httpClient := resty.New()
	httpmock.ActivateNonDefault(httpClient.GetClient())
	defer httpmock.DeactivateAndReset()

	testHost := "http://blob-host.testing.dev"
	uut, err := NewRestBlobHost(httpClient, "primary", testHost, "X-Request-ID", nil)
	assert.Nil(err)
	assert.Equal("primary", uut.HostName())

	dir := t.TempDir()
	videoFile := filepath.Join(dir, "clip.mp4")
	thumbFile := filepath.Join(dir, "clip.jpg")
	assert.Nil(os.WriteFile(videoFile, []byte("video-bytes"), 0o644))
	assert.Nil(os.WriteFile(thumbFile, []byte("thumb-bytes"), 0o644))

	videoID := uuid.New()
	expected := BlobUploadResult{
		VideoURL:              fmt.Sprintf("%s/blobs/%s/video", testHost, videoID),
		ThumbURL:              fmt.Sprintf("%s/blobs/%s/thumb", testHost, videoID),
		DeleteHandle:          fmt.Sprintf("%s/blobs/%s", testHost, videoID),
		OrientationNormalized: true,
	}

	// Case 0: successful multipart upload
	httpmock.RegisterResponder(
		"POST",
		fmt.Sprintf("%s/v1/blob", testHost),
		func(r *http.Request) (*http.Response, error) {
			assert.Nil(r.ParseMultipartForm(1 << 20))
			assert.Equal(videoID.String(), r.FormValue("videoId"))
			_, _, err := r.FormFile("video")
			assert.Nil(err)
			_, _, err = r.FormFile("thumbnail")
			assert.Nil(err)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"success": true,
				"result":  expected,
			})
		},
	)
	result, err := uut.UploadBlobs(utCtxt, videoID, videoFile, thumbFile)
	assert.Nil(err)
	assert.Equal(expected, result)

	// Case 1: host failure reported with details
	httpmock.RegisterResponder(
		"POST",
		fmt.Sprintf("%s/v1/blob", testHost),
		func(r *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusInsufficientStorage, goutils.RestAPIBaseResponse{
				Success: false, Error: &goutils.ErrorDetail{Detail: "storage full"},
			})
		},
	)
	_, err = uut.UploadBlobs(utCtxt, videoID, videoFile, thumbFile)
	assert.NotNil(err)
	assert.Equal("storage full", err.Error())

	// Case 2: fetch into a local file
	httpmock.RegisterResponder(
		"GET",
		expected.VideoURL,
		httpmock.NewStringResponder(http.StatusOK, "video-bytes"),
	)
	target := filepath.Join(dir, "fetched.mp4")
	assert.True(uut.CanFetch(expected.VideoURL))
	assert.False(uut.CanFetch("s3://bucket/key"))
	assert.Nil(uut.FetchBlob(utCtxt, expected.VideoURL, target))
	fetched, err := os.ReadFile(target)
	assert.Nil(err)
	assert.Equal([]byte("video-bytes"), fetched)

	// Case 3: delete via the returned handle
	httpmock.RegisterResponder(
		"DELETE",
		expected.DeleteHandle,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, goutils.RestAPIBaseResponse{Success: true}),
	)
	assert.Nil(uut.DeleteBlobs(utCtxt, expected.DeleteHandle))
}

func TestRestBlobHostThumbnailUpload(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	httpClient := resty.New()
	httpmock.ActivateNonDefault(httpClient.GetClient())
	defer httpmock.DeactivateAndReset()

	t.Setenv("UT_BLOB_HOST_TOKEN", "env-sourced-token")

	testHost := "http://blob-host.testing.dev"
	uut, err := NewRestBlobHost(
		httpClient, "primary", testHost, "X-Request-ID", EnvCredentialProvider("UT_BLOB_HOST_TOKEN"),
	)
	assert.Nil(err)

	dir := t.TempDir()
	thumbFile := filepath.Join(dir, "clip.jpg")
	assert.Nil(os.WriteFile(thumbFile, []byte("thumb-bytes"), 0o644))

	videoID := uuid.New()
	thumbURL := fmt.Sprintf("%s/blobs/%s/thumb", testHost, videoID)

	// Case 0: standalone thumbnail upload carrying the env sourced token
	httpmock.RegisterResponder(
		"POST",
		fmt.Sprintf("%s/v1/blob/%s/thumbnail", testHost, videoID),
		func(r *http.Request) (*http.Response, error) {
			assert.Equal("Bearer env-sourced-token", r.Header.Get("Authorization"))
			assert.Nil(r.ParseMultipartForm(1 << 20))
			_, _, err := r.FormFile("thumbnail")
			assert.Nil(err)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"success": true,
				"result":  BlobUploadResult{ThumbURL: thumbURL},
			})
		},
	)
	result, err := uut.UploadThumbnail(utCtxt, videoID, thumbFile)
	assert.Nil(err)
	assert.Equal(thumbURL, result)

	// Case 1: a named but unset token variable fails before any request
	noToken, err := NewRestBlobHost(
		httpClient,
		"secondary",
		testHost,
		"X-Request-ID",
		EnvCredentialProvider("UT_BLOB_HOST_UNSET_TOKEN"),
	)
	assert.Nil(err)
	_, err = noToken.UploadThumbnail(utCtxt, videoID, thumbFile)
	assert.NotNil(err)
	assert.Contains(err.Error(), "UT_BLOB_HOST_UNSET_TOKEN")
}
