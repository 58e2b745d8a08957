package common

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentManifestVersion the newest manifest schema version this build understands
const CurrentManifestVersion = 2

// ====================================================================================
// URI

// URI reference to a local or remote resource.
//
// The original string form is preserved exactly across encode and decode; no
// normalization is applied.
type URI struct {
	raw string
}

/*
NewURI define a URI from its raw string form

	@param raw string - the URI string
	@returns wrapped URI
*/
func NewURI(raw string) URI {
	return URI{raw: raw}
}

// String the raw string form of the URI
func (u URI) String() string {
	return u.raw
}

// IsZero whether the URI is unset
func (u URI) IsZero() bool {
	return u.raw == ""
}

// Scheme the URI scheme, or "" when the reference has none
func (u URI) Scheme() string {
	idx := strings.Index(u.raw, ":")
	if idx <= 0 {
		return ""
	}
	scheme := u.raw[:idx]
	for _, char := range scheme {
		if !(char >= 'a' && char <= 'z' || char >= 'A' && char <= 'Z' ||
			char >= '0' && char <= '9' || char == '+' || char == '-' || char == '.') {
			return ""
		}
	}
	// A single letter before ':' is a Windows drive, not a scheme
	if len(scheme) < 2 {
		return ""
	}
	return strings.ToLower(scheme)
}

// MarshalJSON implements json.Marshaler
func (u URI) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.raw)
}

// UnmarshalJSON implements json.Unmarshaler. A JSON `null` maps to the zero URI.
func (u *URI) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		u.raw = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.raw = raw
	return nil
}

// ====================================================================================
// User

// User video or annotation author identity
type User struct {
	// Name author display name
	Name string `json:"name"`
	// URI author identity URI
	URI URI `json:"uri"`
}

// EmptyUser sentinel for an unknown author
var EmptyUser = User{}

// IsEmpty whether this is the unknown author sentinel
func (u User) IsEmpty() bool {
	return u == EmptyUser
}

/*
Color derive a deterministic ARGB color from the author identity.

The same identity URI always produces the same color, so an author renders
identically across videos and devices.

	@returns ARGB color value
*/
func (u User) Color() uint32 {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(u.URI.String()))
	return 0xff000000 | hasher.Sum32()&0x00ffffff
}

// ====================================================================================
// GeoLocation

// GeoLocation a geographic coordinate with accuracy.
//
// The JSON form carries only latitude, longitude, and accuracy; the provider
// name of the original fix is not preserved across encode and decode.
type GeoLocation struct {
	// Latitude degrees north
	Latitude float64 `json:"latitude" validate:"gte=-90,lte=90"`
	// Longitude degrees east
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	// Accuracy horizontal accuracy in meters
	Accuracy float32 `json:"accuracy" validate:"gte=0"`
	// Provider name of the location fix source. Not serialized.
	Provider string `json:"-"`
}

// ====================================================================================
// Annotation

// AnnotationPosition normalized 2D position of an annotation marker.
//
// Each axis is clamped to [0, 1] on every set, including decode.
type AnnotationPosition struct {
	x float64
	y float64
}

/*
NewAnnotationPosition define a position, clamping each axis to [0, 1]

	@param x float64 - horizontal position
	@param y float64 - vertical position
	@returns clamped position
*/
func NewAnnotationPosition(x, y float64) AnnotationPosition {
	result := AnnotationPosition{}
	result.Set(x, y)
	return result
}

// Set update the position, clamping each axis to [0, 1] independently
func (p *AnnotationPosition) Set(x, y float64) {
	p.x = clampUnit(x)
	p.y = clampUnit(y)
}

// X horizontal position in [0, 1]
func (p AnnotationPosition) X() float64 {
	return p.x
}

// Y vertical position in [0, 1]
func (p AnnotationPosition) Y() float64 {
	return p.y
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// annotationPositionJSON wire form of AnnotationPosition
type annotationPositionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON implements json.Marshaler
func (p AnnotationPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(annotationPositionJSON{X: p.x, Y: p.y})
}

// UnmarshalJSON implements json.Unmarshaler. Out-of-range axes are clamped.
func (p *AnnotationPosition) UnmarshalJSON(data []byte) error {
	var wire annotationPositionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Set(wire.X, wire.Y)
	return nil
}

// Annotation one time-positioned annotation within a video
type Annotation struct {
	// Time annotation position in milliseconds into the video
	Time int64 `json:"time" validate:"gte=0"`
	// Position normalized marker position
	Position AnnotationPosition `json:"position"`
	// Text annotation text. Never null; an absent value decodes as "".
	Text string `json:"text"`
	// Author who created the annotation. May differ from the video author.
	Author User `json:"author"`
}

// ====================================================================================
// Video

// Supported video rotation values in degrees
const (
	Rotation0   = 0
	Rotation90  = 90
	Rotation180 = 180
	Rotation270 = 270
)

// localURISchemes video URI schemes treated as device-local content
var localURISchemes = map[string]bool{"": true, "file": true, "content": true}

// Video an annotated video entity. The aggregate root of a manifest.
type Video struct {
	// ID stable video ID. The join key for local/remote reconciliation.
	ID uuid.UUID `json:"id" validate:"required"`
	// FormatVersion manifest schema version
	FormatVersion int `json:"formatVersion"`
	// Title video display title
	Title string `json:"title"`
	// Tag free text genre tag
	Tag string `json:"tag"`
	// Rotation playback rotation in degrees
	Rotation int `json:"rotation" validate:"oneof=0 90 180 270"`
	// Date video creation timestamp
	Date time.Time `json:"date"`
	// Revision monotonic local edit counter
	Revision int64 `json:"revision" validate:"gte=0"`
	// StartTime trim window start in milliseconds
	StartTime int64 `json:"startTime" validate:"gte=0"`
	// EndTime trim window end in milliseconds. Negative means unbounded.
	EndTime int64 `json:"endTime"`
	// VideoURI primary video location. Local path or remote URL.
	VideoURI URI `json:"videoUri"`
	// ThumbURI primary thumbnail location
	ThumbURI URI `json:"thumbUri"`
	// VideoCacheURI locally cached copy of a remote video
	VideoCacheURI URI `json:"videoCacheUri,omitempty"`
	// ThumbCacheURI locally cached copy of a remote thumbnail
	ThumbCacheURI URI `json:"thumbCacheUri,omitempty"`
	// DeleteURI remote host specific deletion handle
	DeleteURI URI `json:"deleteUri,omitempty"`
	// RotationCompensation local-only rotation fix-up in degrees, cleared once
	// a remote host re-encodes the video with orientation baked in.
	RotationCompensation int `json:"rotationCompensation,omitempty"`
	// Author who created the video
	Author User `json:"author"`
	// Location where the video was captured
	Location *GeoLocation `json:"location,omitempty"`
	// Annotations ordered annotation sequence
	Annotations []Annotation `json:"annotations"`
}

// String toString function
func (v Video) String() string {
	return fmt.Sprintf("video[%s] '%s' rev %d", v.ID, v.Title, v.Revision)
}

// IsLocal whether the primary video URI points at device-local content
func (v Video) IsLocal() bool {
	return localURISchemes[v.VideoURI.Scheme()]
}

// IsRemote whether the primary video URI points at a remote host
func (v Video) IsRemote() bool {
	return !v.IsLocal()
}

// HasCachedFiles whether both the video and thumbnail have local cached copies
func (v Video) HasCachedFiles() bool {
	return !v.VideoCacheURI.IsZero() && !v.ThumbCacheURI.IsZero()
}

// PlaybackURI the URI playback should use. The cached copy when present.
func (v Video) PlaybackURI() URI {
	if !v.VideoCacheURI.IsZero() {
		return v.VideoCacheURI
	}
	return v.VideoURI
}

// Rename change the video title and bump the revision counter
func (v *Video) Rename(title string) {
	v.Title = title
	v.Revision++
}

// SetTrimWindow change the playback trim window and bump the revision counter
func (v *Video) SetTrimWindow(startTime, endTime int64) {
	v.StartTime = startTime
	v.EndTime = endTime
	v.Revision++
}

// AddAnnotation append an annotation and bump the revision counter
func (v *Video) AddAnnotation(annotation Annotation) {
	v.Annotations = append(v.Annotations, annotation)
	v.Revision++
}

// Info project the video down to its listing summary
func (v Video) Info() VideoInfo {
	return VideoInfo{
		ID:       v.ID,
		Title:    v.Title,
		Tag:      v.Tag,
		Date:     v.Date,
		VideoURI: v.VideoURI,
		ThumbURI: v.ThumbURI,
	}
}

// VideoInfo read-only listing summary of a Video.
//
// Carries enough for browsing grids without loading annotation data, and is
// independently cacheable.
type VideoInfo struct {
	// ID stable video ID
	ID uuid.UUID `json:"id" validate:"required"`
	// Title video display title
	Title string `json:"title"`
	// Tag free text genre tag
	Tag string `json:"tag"`
	// Date video creation timestamp
	Date time.Time `json:"date"`
	// VideoURI primary video location
	VideoURI URI `json:"videoUri"`
	// ThumbURI primary thumbnail location
	ThumbURI URI `json:"thumbUri"`
}

// IsLocal whether the primary video URI points at device-local content
func (v VideoInfo) IsLocal() bool {
	return localURISchemes[v.VideoURI.Scheme()]
}
