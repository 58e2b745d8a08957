package remote

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// CredentialProvider produce the bearer token for outbound requests. Hosts
// call this per request so rotated credentials take effect immediately.
type CredentialProvider func(ctxt context.Context) (string, error)

/*
EnvCredentialProvider define a CredentialProvider reading the bearer token
from the named environment variable

The variable is read per request, so a rotated token takes effect without a
restart.

	@param envName string - environment variable holding the token
	@returns the credential source
*/
func EnvCredentialProvider(envName string) CredentialProvider {
	return func(ctxt context.Context) (string, error) {
		token := os.Getenv(envName)
		if token == "" {
			return "", fmt.Errorf("environment variable '%s' holds no bearer token", envName)
		}
		return token, nil
	}
}

// HostIndexEntry one video in a remote host's manifest index
type HostIndexEntry struct {
	// VideoID stable video ID
	VideoID uuid.UUID `json:"videoId"`
	// ManifestURL host specific manifest locator
	ManifestURL string `json:"url"`
	// Modified manifest modification timestamp on the host
	Modified time.Time `json:"modifiedAt"`
}

// ManifestHost remote host holding video manifests
type ManifestHost interface {
	/*
		Ready check whether the host is reachable

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		ListManifests fetch the host's manifest index

			@param ctxt context.Context - execution context
			@returns the index entries
	*/
	ListManifests(ctxt context.Context) ([]HostIndexEntry, error)

	/*
		FetchManifest fetch one manifest from the host

			@param ctxt context.Context - execution context
			@param entry HostIndexEntry - index entry identifying the manifest
			@returns the encoded manifest
	*/
	FetchManifest(ctxt context.Context, entry HostIndexEntry) ([]byte, error)

	/*
		PushManifest write one manifest to the host, replacing any existing copy

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param manifest []byte - encoded manifest
	*/
	PushManifest(ctxt context.Context, videoID uuid.UUID, manifest []byte) error

	/*
		DeleteManifest remove one manifest from the host

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	DeleteManifest(ctxt context.Context, videoID uuid.UUID) error
}

// BlobUploadResult outcome of uploading a video and its thumbnail
type BlobUploadResult struct {
	// VideoURL public locator of the uploaded video
	VideoURL string `json:"videoUrl"`
	// ThumbURL public locator of the uploaded thumbnail. Empty when the host
	// did not accept the bundled thumbnail.
	ThumbURL string `json:"thumbUrl"`
	// DeleteHandle host specific handle for deleting the upload later
	DeleteHandle string `json:"deleteUrl"`
	// OrientationNormalized whether the host re-encoded the video with
	// orientation baked in. When true, any local rotation compensation no
	// longer applies to the hosted copy.
	OrientationNormalized bool `json:"orientationNormalized"`
}

// BlobHost remote host holding video and thumbnail files
type BlobHost interface {
	/*
		HostName name of this host entry, for logs and preference reporting

			@returns the host name
	*/
	HostName() string

	/*
		Ready check whether the host is reachable

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		UploadBlobs upload a video file and its thumbnail

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param videoFile string - local video file path
			@param thumbFile string - local thumbnail file path
			@returns upload outcome
	*/
	UploadBlobs(
		ctxt context.Context, videoID uuid.UUID, videoFile, thumbFile string,
	) (BlobUploadResult, error)

	/*
		UploadThumbnail upload a thumbnail on its own. Used when a bundled
		upload did not produce a hosted thumbnail.

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param thumbFile string - local thumbnail file path
			@returns public locator of the uploaded thumbnail
	*/
	UploadThumbnail(ctxt context.Context, videoID uuid.UUID, thumbFile string) (string, error)

	/*
		CanFetch whether this host can serve the given blob locator

			@param blobURL string - the blob locator
			@returns whether the locator is served by this host
	*/
	CanFetch(blobURL string) bool

	/*
		FetchBlob download a blob into a local file

			@param ctxt context.Context - execution context
			@param blobURL string - the blob locator
			@param targetPath string - local file to write
	*/
	FetchBlob(ctxt context.Context, blobURL string, targetPath string) error

	/*
		DeleteBlobs remove a previous upload using its delete handle

			@param ctxt context.Context - execution context
			@param deleteHandle string - handle returned by UploadBlobs
	*/
	DeleteBlobs(ctxt context.Context, deleteHandle string) error
}
