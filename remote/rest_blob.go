package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// restBlobUploadResponse upload response from a REST blob host
type restBlobUploadResponse struct {
	goutils.RestAPIBaseResponse
	// Result the upload outcome
	Result BlobUploadResult `json:"result"`
}

// restBlobHostImpl implements BlobHost against a multipart upload endpoint
type restBlobHostImpl struct {
	goutils.Component
	client          *resty.Client
	name            string
	baseURL         string
	requestIDHeader string
	credentials     CredentialProvider
}

/*
NewRestBlobHost define new REST blob host client

	@param client *resty.Client - HTTP client for reaching the host
	@param name string - host entry name
	@param baseURL string - host base URL
	@param requestIDHeader string - request ID header name to set on requests
	@param credentials CredentialProvider - optional outbound credential source
	@returns new BlobHost
*/
func NewRestBlobHost(
	client *resty.Client,
	name string,
	baseURL string,
	requestIDHeader string,
	credentials CredentialProvider,
) (BlobHost, error) {
	logTags := log.Fields{
		"module": "remote", "component": "blob-host", "instance": name, "protocol": "rest",
	}
	return &restBlobHostImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client:          client,
		name:            name,
		baseURL:         baseURL,
		requestIDHeader: requestIDHeader,
		credentials:     credentials,
	}, nil
}

func (h *restBlobHostImpl) HostName() string {
	return h.name
}

// newRequest start a request with the standard headers applied
func (h *restBlobHostImpl) newRequest(ctxt context.Context) (*resty.Request, string, error) {
	reqID := ulid.Make().String()
	request := h.client.R().SetContext(ctxt).SetHeader(h.requestIDHeader, reqID)
	if h.credentials != nil {
		token, err := h.credentials(ctxt)
		if err != nil {
			return nil, reqID, err
		}
		request = request.SetAuthToken(token)
	}
	return request, reqID, nil
}

func (h *restBlobHostImpl) Ready(ctxt context.Context) error {
	request, _, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.Get(fmt.Sprintf("%s/v1/alive", h.baseURL))
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("blob host not ready: status %d", resp.StatusCode())
	}
	return nil
}

func (h *restBlobHostImpl) UploadBlobs(
	ctxt context.Context, videoID uuid.UUID, videoFile, thumbFile string,
) (BlobUploadResult, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return BlobUploadResult{}, err
	}
	var uploaded restBlobUploadResponse
	resp, err := request.
		SetFile("video", videoFile).
		SetFile("thumbnail", thumbFile).
		SetFormData(map[string]string{"videoId": videoID.String()}).
		SetResult(&uploaded).
		SetError(&goutils.RestAPIBaseResponse{}).
		Post(fmt.Sprintf("%s/v1/blob", h.baseURL))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Blob upload failed")
		return BlobUploadResult{}, err
	}
	if !resp.IsSuccess() {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Blob upload failed")
		return BlobUploadResult{}, err
	}
	if uploaded.Result.VideoURL == "" || uploaded.Result.DeleteHandle == "" {
		return BlobUploadResult{}, fmt.Errorf("blob host returned incomplete upload result")
	}
	log.WithFields(logTags).WithField("video-id", videoID).Debug("Uploaded blobs")
	return uploaded.Result, nil
}

func (h *restBlobHostImpl) UploadThumbnail(
	ctxt context.Context, videoID uuid.UUID, thumbFile string,
) (string, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return "", err
	}
	var uploaded restBlobUploadResponse
	resp, err := request.
		SetFile("thumbnail", thumbFile).
		SetResult(&uploaded).
		SetError(&goutils.RestAPIBaseResponse{}).
		Post(fmt.Sprintf("%s/v1/blob/%s/thumbnail", h.baseURL, videoID))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Thumbnail upload failed")
		return "", err
	}
	if !resp.IsSuccess() {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Thumbnail upload failed")
		return "", err
	}
	if uploaded.Result.ThumbURL == "" {
		return "", fmt.Errorf("blob host returned no thumbnail locator")
	}
	log.WithFields(logTags).WithField("video-id", videoID).Debug("Uploaded thumbnail")
	return uploaded.Result.ThumbURL, nil
}

func (h *restBlobHostImpl) CanFetch(blobURL string) bool {
	return strings.HasPrefix(blobURL, "http://") || strings.HasPrefix(blobURL, "https://")
}

func (h *restBlobHostImpl) FetchBlob(
	ctxt context.Context, blobURL string, targetPath string,
) error {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.SetOutput(targetPath).Get(blobURL)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("blob", blobURL).Error("Blob fetch failed")
		return err
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("blob fetch returned status %d", resp.StatusCode())
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("blob", blobURL).Error("Blob fetch failed")
		return err
	}
	return nil
}

func (h *restBlobHostImpl) DeleteBlobs(ctxt context.Context, deleteHandle string) error {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.
		SetError(&goutils.RestAPIBaseResponse{}).
		Delete(deleteHandle)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("handle", deleteHandle).Error("Blob delete failed")
		return err
	}
	if !resp.IsSuccess() && resp.StatusCode() != 404 {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("handle", deleteHandle).Error("Blob delete failed")
		return err
	}
	return nil
}
