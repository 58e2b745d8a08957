package remote

import (
	"context"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// restManifestIndexResponse index listing response from a REST manifest host
type restManifestIndexResponse struct {
	goutils.RestAPIBaseResponse
	// Manifests the index entries
	Manifests []HostIndexEntry `json:"manifests"`
}

// restManifestHostImpl implements ManifestHost against a clipsync REST endpoint
type restManifestHostImpl struct {
	goutils.Component
	client          *resty.Client
	baseURL         string
	requestIDHeader string
	credentials     CredentialProvider
}

/*
NewRestManifestHost define new REST manifest host client

	@param client *resty.Client - HTTP client for reaching the host
	@param baseURL string - host base URL
	@param requestIDHeader string - request ID header name to set on requests
	@param credentials CredentialProvider - optional outbound credential source
	@returns new ManifestHost
*/
func NewRestManifestHost(
	client *resty.Client,
	baseURL string,
	requestIDHeader string,
	credentials CredentialProvider,
) (ManifestHost, error) {
	logTags := log.Fields{
		"module": "remote", "component": "manifest-host", "instance": baseURL, "protocol": "rest",
	}
	return &restManifestHostImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client:          client,
		baseURL:         baseURL,
		requestIDHeader: requestIDHeader,
		credentials:     credentials,
	}, nil
}

// newRequest start a request with the standard headers applied
func (h *restManifestHostImpl) newRequest(ctxt context.Context) (*resty.Request, string, error) {
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

// requestFailure build the error for a non-success response
func requestFailure(resp *resty.Response) error {
	if respError, ok := resp.Error().(*goutils.RestAPIBaseResponse); ok &&
		respError.Error != nil && respError.Error.Detail != "" {
		return fmt.Errorf("%s", respError.Error.Detail)
	}
	return fmt.Errorf("request returned status %d", resp.StatusCode())
}

func (h *restManifestHostImpl) Ready(ctxt context.Context) error {
	request, _, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.Get(fmt.Sprintf("%s/v1/alive", h.baseURL))
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("manifest host not ready: status %d", resp.StatusCode())
	}
	return nil
}

func (h *restManifestHostImpl) ListManifests(ctxt context.Context) ([]HostIndexEntry, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return nil, err
	}
	var index restManifestIndexResponse
	resp, err := request.
		SetResult(&index).
		SetError(&goutils.RestAPIBaseResponse{}).
		Get(fmt.Sprintf("%s/v1/manifest", h.baseURL))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			Error("Manifest index request failed")
		return nil, err
	}
	if !resp.IsSuccess() {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			Error("Manifest index request failed")
		return nil, err
	}
	return index.Manifests, nil
}

func (h *restManifestHostImpl) FetchManifest(
	ctxt context.Context, entry HostIndexEntry,
) ([]byte, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return nil, err
	}
	manifestURL := entry.ManifestURL
	if manifestURL == "" {
		manifestURL = fmt.Sprintf("%s/v1/manifest/%s", h.baseURL, entry.VideoID)
	}
	resp, err := request.Get(manifestURL)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", entry.VideoID).Error("Manifest fetch failed")
		return nil, err
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("manifest fetch returned status %d", resp.StatusCode())
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", entry.VideoID).Error("Manifest fetch failed")
		return nil, err
	}
	return resp.Body(), nil
}

func (h *restManifestHostImpl) PushManifest(
	ctxt context.Context, videoID uuid.UUID, manifest []byte,
) error {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.
		SetHeader("Content-Type", "application/json").
		SetBody(manifest).
		SetError(&goutils.RestAPIBaseResponse{}).
		Put(fmt.Sprintf("%s/v1/manifest/%s", h.baseURL, videoID))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest push failed")
		return err
	}
	if !resp.IsSuccess() {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest push failed")
		return err
	}
	return nil
}

func (h *restManifestHostImpl) DeleteManifest(ctxt context.Context, videoID uuid.UUID) error {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.
		SetError(&goutils.RestAPIBaseResponse{}).
		Delete(fmt.Sprintf("%s/v1/manifest/%s", h.baseURL, videoID))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest delete failed")
		return err
	}
	if !resp.IsSuccess() && resp.StatusCode() != 404 {
		err := requestFailure(resp)
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest delete failed")
		return err
	}
	return nil
}
