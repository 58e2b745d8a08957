package remote

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/alwitt/clipsync/utils"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/google/uuid"
)

// s3URIPrefix scheme prefix of blob locators served by S3 hosts
const s3URIPrefix = "s3://"

// s3BlobHostImpl implements BlobHost against an S3 object store
type s3BlobHostImpl struct {
	goutils.Component
	s3           utils.S3Client
	name         string
	bucket       string
	objectPrefix string
}

/*
NewS3BlobHost define new S3 blob host

Uploads land under `<objectPrefix>/<video-id>/` in the bucket. Blob locators
use the `s3://<bucket>/<key>` form.

	@param ctxt context.Context - execution context
	@param s3 utils.S3Client - S3 operation client
	@param name string - host entry name
	@param bucket string - target bucket
	@param objectPrefix string - object key prefix
	@returns new BlobHost
*/
func NewS3BlobHost(
	ctxt context.Context, s3 utils.S3Client, name, bucket, objectPrefix string,
) (BlobHost, error) {
	logTags := log.Fields{
		"module": "remote", "component": "blob-host", "instance": name, "protocol": "s3",
	}

	if err := s3.CreateBucket(ctxt, bucket); err != nil {
		log.WithError(err).WithFields(logTags).WithField("bucket", bucket).
			Error("Unable to prepare storage bucket")
		return nil, err
	}

	return &s3BlobHostImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		s3:           s3,
		name:         name,
		bucket:       bucket,
		objectPrefix: objectPrefix,
	}, nil
}

func (h *s3BlobHostImpl) HostName() string {
	return h.name
}

func (h *s3BlobHostImpl) Ready(ctxt context.Context) error {
	return h.s3.Ready(ctxt)
}

// uploadKeyPrefix object key prefix of one video's blobs
func (h *s3BlobHostImpl) uploadKeyPrefix(videoID uuid.UUID) string {
	return path.Join(h.objectPrefix, videoID.String())
}

// blobURI locator of one object in this host
func (h *s3BlobHostImpl) blobURI(objectKey string) string {
	return fmt.Sprintf("%s%s/%s", s3URIPrefix, h.bucket, objectKey)
}

// parseBlobURI split an `s3://` locator into bucket and object key
func parseBlobURI(blobURL string) (string, string, error) {
	trimmed := strings.TrimPrefix(blobURL, s3URIPrefix)
	if trimmed == blobURL {
		return "", "", fmt.Errorf("'%s' is not an S3 locator", blobURL)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("'%s' is not a valid S3 locator", blobURL)
	}
	return parts[0], parts[1], nil
}

func (h *s3BlobHostImpl) UploadBlobs(
	ctxt context.Context, videoID uuid.UUID, videoFile, thumbFile string,
) (BlobUploadResult, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	keyPrefix := h.uploadKeyPrefix(videoID)
	videoKey := path.Join(keyPrefix, "video.mp4")
	thumbKey := path.Join(keyPrefix, "thumbnail.jpg")

	if err := h.s3.PutFile(ctxt, h.bucket, videoKey, videoFile); err != nil {
		return BlobUploadResult{}, err
	}
	if err := h.s3.PutFile(ctxt, h.bucket, thumbKey, thumbFile); err != nil {
		// Do not leave a half complete upload behind
		_ = h.s3.DeleteObject(ctxt, h.bucket, videoKey)
		return BlobUploadResult{}, err
	}

	log.WithFields(logTags).WithField("video-id", videoID).Debug("Uploaded blobs")
	return BlobUploadResult{
		VideoURL:     h.blobURI(videoKey),
		ThumbURL:     h.blobURI(thumbKey),
		DeleteHandle: h.blobURI(keyPrefix),
		// Objects are stored byte for byte, so the original orientation
		// metadata still applies
		OrientationNormalized: false,
	}, nil
}

func (h *s3BlobHostImpl) UploadThumbnail(
	ctxt context.Context, videoID uuid.UUID, thumbFile string,
) (string, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	thumbKey := path.Join(h.uploadKeyPrefix(videoID), "thumbnail.jpg")
	if err := h.s3.PutFile(ctxt, h.bucket, thumbKey, thumbFile); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
			Error("Thumbnail upload failed")
		return "", err
	}
	log.WithFields(logTags).WithField("video-id", videoID).Debug("Uploaded thumbnail")
	return h.blobURI(thumbKey), nil
}

func (h *s3BlobHostImpl) CanFetch(blobURL string) bool {
	bucket, _, err := parseBlobURI(blobURL)
	return err == nil && bucket == h.bucket
}

func (h *s3BlobHostImpl) FetchBlob(
	ctxt context.Context, blobURL string, targetPath string,
) error {
	logTags := h.GetLogTagsForContext(ctxt)

	bucket, objectKey, err := parseBlobURI(blobURL)
	if err != nil {
		return err
	}
	if err := h.s3.GetFile(ctxt, bucket, objectKey, targetPath); err != nil {
		log.WithError(err).WithFields(logTags).WithField("blob", blobURL).Error("Blob fetch failed")
		return err
	}
	return nil
}

func (h *s3BlobHostImpl) DeleteBlobs(ctxt context.Context, deleteHandle string) error {
	logTags := h.GetLogTagsForContext(ctxt)

	bucket, keyPrefix, err := parseBlobURI(deleteHandle)
	if err != nil {
		return err
	}
	objectKeys, err := h.s3.ListObjects(ctxt, bucket, keyPrefix+"/")
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("handle", deleteHandle).
			Error("Unable to list blobs for deletion")
		return err
	}
	for _, objectKey := range objectKeys {
		if err := h.s3.DeleteObject(ctxt, bucket, objectKey); err != nil {
			return err
		}
	}
	return nil
}
