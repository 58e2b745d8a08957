package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alwitt/goutils"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

func TestRestManifestHostListManifests(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	httpClient := resty.New()
	httpmock.ActivateNonDefault(httpClient.GetClient())
	defer httpmock.DeactivateAndReset()

	testHost := "http://manifest-host.testing.dev"
	uut, err := NewRestManifestHost(httpClient, testHost, "X-Request-ID", nil)
	assert.Nil(err)

	videoID := uuid.New()
	modified := time.Now().UTC().Truncate(time.Second)

	// Case 0: index returned
	httpmock.RegisterResponder(
		"GET",
		fmt.Sprintf("%s/v1/manifest", testHost),
		func(r *http.Request) (*http.Response, error) {
			assert.NotEmpty(r.Header.Get("X-Request-ID"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"success": true,
				"manifests": []map[string]interface{}{{
					"videoId":    videoID.String(),
					"url":        fmt.Sprintf("%s/v1/manifest/%s", testHost, videoID),
					"modifiedAt": modified.Format(time.RFC3339),
				}},
			})
		},
	)
	index, err := uut.ListManifests(utCtxt)
	assert.Nil(err)
	assert.Len(index, 1)
	assert.Equal(videoID, index[0].VideoID)
	assert.Equal(modified, index[0].Modified.UTC())

	// Case 1: host reports an error with details
	httpmock.RegisterResponder(
		"GET",
		fmt.Sprintf("%s/v1/manifest", testHost),
		func(r *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusInternalServerError, goutils.RestAPIBaseResponse{
				Success: false,
				Error:   &goutils.ErrorDetail{Detail: "index store offline"},
			})
		},
	)
	_, err = uut.ListManifests(utCtxt)
	assert.NotNil(err)
	assert.Equal("index store offline", err.Error())
}

func TestRestManifestHostManifestTransfer(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	httpClient := resty.New()
	httpmock.ActivateNonDefault(httpClient.GetClient())
	defer httpmock.DeactivateAndReset()

	testHost := "http://manifest-host.testing.dev"
	uut, err := NewRestManifestHost(httpClient, testHost, "X-Request-ID", func(
		ctxt context.Context,
	) (string, error) {
		return "unit-test-token", nil
	})
	assert.Nil(err)

	videoID := uuid.New()
	manifest := []byte(`{"id":"` + videoID.String() + `","title":"clip"}`)

	// Case 0: fetch by index entry
	httpmock.RegisterResponder(
		"GET",
		fmt.Sprintf("%s/v1/manifest/%s", testHost, videoID),
		func(r *http.Request) (*http.Response, error) {
			assert.Equal("Bearer unit-test-token", r.Header.Get("Authorization"))
			return httpmock.NewBytesResponse(http.StatusOK, manifest), nil
		},
	)
	fetched, err := uut.FetchManifest(utCtxt, HostIndexEntry{
		VideoID: videoID, ManifestURL: fmt.Sprintf("%s/v1/manifest/%s", testHost, videoID),
	})
	assert.Nil(err)
	assert.Equal(manifest, fetched)

	// Case 1: push
	httpmock.RegisterResponder(
		"PUT",
		fmt.Sprintf("%s/v1/manifest/%s", testHost, videoID),
		func(r *http.Request) (*http.Response, error) {
			var received map[string]interface{}
			assert.Nil(json.NewDecoder(r.Body).Decode(&received))
			assert.Equal("clip", received["title"])
			return httpmock.NewJsonResponse(http.StatusOK, goutils.RestAPIBaseResponse{Success: true})
		},
	)
	assert.Nil(uut.PushManifest(utCtxt, videoID, manifest))

	// Case 2: delete, including repeat of an already deleted manifest
	deleteStatus := http.StatusOK
	httpmock.RegisterResponder(
		"DELETE",
		fmt.Sprintf("%s/v1/manifest/%s", testHost, videoID),
		func(r *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(deleteStatus, goutils.RestAPIBaseResponse{Success: true})
		},
	)
	assert.Nil(uut.DeleteManifest(utCtxt, videoID))
	deleteStatus = http.StatusNotFound
	assert.Nil(uut.DeleteManifest(utCtxt, videoID))
}

func TestWebDAVManifestHostListManifests(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	httpClient := resty.New()
	httpmock.ActivateNonDefault(httpClient.GetClient())
	defer httpmock.DeactivateAndReset()

	testHost := "http://dav.testing.dev/videos"
	uut, err := NewWebDAVManifestHost(httpClient, testHost, "X-Request-ID", nil)
	assert.Nil(err)

	videoID := uuid.New()
	multistatus := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/videos/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/videos/%s.json</d:href>
    <d:propstat>
      <d:prop>
        <d:getlastmodified>Fri, 07 Aug 2026 10:15:00 GMT</d:getlastmodified>
        <d:resourcetype/>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/videos/notes.txt</d:href>
    <d:propstat>
      <d:prop><d:resourcetype/></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`, videoID)

	httpmock.RegisterResponder(
		"PROPFIND",
		"http://dav.testing.dev/videos/",
		func(r *http.Request) (*http.Response, error) {
			assert.Equal("1", r.Header.Get("Depth"))
			return httpmock.NewStringResponse(207, multistatus), nil
		},
	)

	index, err := uut.ListManifests(utCtxt)
	assert.Nil(err)
	assert.Len(index, 1)
	assert.Equal(videoID, index[0].VideoID)
	assert.Equal(
		fmt.Sprintf("http://dav.testing.dev/videos/%s.json", videoID), index[0].ManifestURL,
	)
	expectedModified, err := time.Parse(time.RFC1123, "Fri, 07 Aug 2026 10:15:00 GMT")
	assert.Nil(err)
	assert.Equal(expectedModified.UTC(), index[0].Modified.UTC())

	// Push targets the per video resource
	httpmock.RegisterResponder(
		"PUT",
		fmt.Sprintf("http://dav.testing.dev/videos/%s.json", videoID),
		httpmock.NewStringResponder(http.StatusCreated, ""),
	)
	assert.Nil(uut.PushManifest(utCtxt, videoID, []byte(`{}`)))
}
