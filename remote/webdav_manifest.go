package remote

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// davPropfindBody PROPFIND request asking for the listing properties
const davPropfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:getlastmodified/>
    <d:resourcetype/>
  </d:prop>
</d:propfind>`

// WebDAV multistatus response document
type davMultistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string        `xml:"href"`
	Propstats []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	LastModified string          `xml:"getlastmodified"`
	ResourceType davResourceType `xml:"resourcetype"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

// webdavManifestHostImpl implements ManifestHost against a WebDAV collection
type webdavManifestHostImpl struct {
	goutils.Component
	client          *resty.Client
	baseURL         *url.URL
	requestIDHeader string
	credentials     CredentialProvider
}

/*
NewWebDAVManifestHost define new WebDAV manifest host client

The host stores one `<video-id>.json` resource per video in the collection at
`baseURL`.

	@param client *resty.Client - HTTP client for reaching the host
	@param baseURL string - URL of the manifest collection
	@param requestIDHeader string - request ID header name to set on requests
	@param credentials CredentialProvider - optional outbound credential source
	@returns new ManifestHost
*/
func NewWebDAVManifestHost(
	client *resty.Client,
	baseURL string,
	requestIDHeader string,
	credentials CredentialProvider,
) (ManifestHost, error) {
	logTags := log.Fields{
		"module": "remote", "component": "manifest-host", "instance": baseURL, "protocol": "webdav",
	}

	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid WebDAV collection URL")
		return nil, err
	}

	return &webdavManifestHostImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client:          client,
		baseURL:         parsed,
		requestIDHeader: requestIDHeader,
		credentials:     credentials,
	}, nil
}

// newRequest start a request with the standard headers applied
func (h *webdavManifestHostImpl) newRequest(ctxt context.Context) (*resty.Request, string, error) {
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

// manifestResourceURL resource URL of one video manifest in the collection
func (h *webdavManifestHostImpl) manifestResourceURL(videoID uuid.UUID) string {
	resource := *h.baseURL
	resource.Path = path.Join(resource.Path, videoID.String()+".json")
	return resource.String()
}

func (h *webdavManifestHostImpl) Ready(ctxt context.Context) error {
	request, _, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.Execute("OPTIONS", h.baseURL.String())
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("WebDAV host not ready: status %d", resp.StatusCode())
	}
	return nil
}

func (h *webdavManifestHostImpl) ListManifests(ctxt context.Context) ([]HostIndexEntry, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return nil, err
	}
	resp, err := request.
		SetHeader("Depth", "1").
		SetHeader("Content-Type", "application/xml").
		SetBody(davPropfindBody).
		Execute("PROPFIND", h.baseURL.String())
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			Error("PROPFIND failed")
		return nil, err
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("PROPFIND returned status %d", resp.StatusCode())
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			Error("PROPFIND failed")
		return nil, err
	}

	var multistatus davMultistatus
	if err := xml.Unmarshal(resp.Body(), &multistatus); err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			Error("Malformed multistatus response")
		return nil, err
	}

	var result []HostIndexEntry
	for _, response := range multistatus.Responses {
		entry, ok := h.indexEntryFromResponse(response)
		if !ok {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// indexEntryFromResponse map one multistatus response onto an index entry
func (h *webdavManifestHostImpl) indexEntryFromResponse(
	response davResponse,
) (HostIndexEntry, bool) {
	name := path.Base(response.Href)
	if !strings.HasSuffix(name, ".json") {
		return HostIndexEntry{}, false
	}
	videoID, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return HostIndexEntry{}, false
	}

	entry := HostIndexEntry{VideoID: videoID}
	for _, propstat := range response.Propstats {
		if !strings.Contains(propstat.Status, "200") {
			continue
		}
		if propstat.Prop.ResourceType.Collection != nil {
			return HostIndexEntry{}, false
		}
		if propstat.Prop.LastModified != "" {
			if modified, err := http.ParseTime(propstat.Prop.LastModified); err == nil {
				entry.Modified = modified
			}
		}
	}

	href, err := url.Parse(response.Href)
	if err != nil {
		return HostIndexEntry{}, false
	}
	entry.ManifestURL = h.baseURL.ResolveReference(href).String()
	return entry, true
}

func (h *webdavManifestHostImpl) FetchManifest(
	ctxt context.Context, entry HostIndexEntry,
) ([]byte, error) {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return nil, err
	}
	manifestURL := entry.ManifestURL
	if manifestURL == "" {
		manifestURL = h.manifestResourceURL(entry.VideoID)
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

func (h *webdavManifestHostImpl) PushManifest(
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
		Put(h.manifestResourceURL(videoID))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest push failed")
		return err
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("manifest push returned status %d", resp.StatusCode())
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest push failed")
		return err
	}
	return nil
}

func (h *webdavManifestHostImpl) DeleteManifest(ctxt context.Context, videoID uuid.UUID) error {
	logTags := h.GetLogTagsForContext(ctxt)

	request, reqID, err := h.newRequest(ctxt)
	if err != nil {
		return err
	}
	resp, err := request.Delete(h.manifestResourceURL(videoID))
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest delete failed")
		return err
	}
	if !resp.IsSuccess() && resp.StatusCode() != 404 {
		err := fmt.Errorf("manifest delete returned status %d", resp.StatusCode())
		log.WithError(err).WithFields(logTags).WithField("outbound-request-id", reqID).
			WithField("video-id", videoID).Error("Manifest delete failed")
		return err
	}
	return nil
}
