package common

import (
	"encoding/json"
	"fmt"
)

// DecodeError manifest bytes were empty, truncated, or structurally invalid
type DecodeError struct {
	// Reason human readable description of the failure
	Reason string
	// Err the underlying parse error, if any
	Err error
}

// Error implements error
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest decode failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest decode failed: %s", e.Reason)
}

// Unwrap expose the underlying parse error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

/*
EncodeManifest serialize a video entity to UTF-8 JSON manifest bytes

	@param video Video - entity to serialize
	@returns manifest bytes
*/
func EncodeManifest(video Video) ([]byte, error) {
	if video.FormatVersion == 0 {
		video.FormatVersion = CurrentManifestVersion
	}
	return json.Marshal(&video)
}

/*
DecodeManifest parse UTF-8 JSON manifest bytes into a video entity.

Manifests written by an older schema version are upgraded through the
migration chain before decoding. The call never returns a partial entity; a
malformed stream always surfaces a DecodeError.

	@param data []byte - manifest bytes
	@returns decoded entity
*/
func DecodeManifest(data []byte) (Video, error) {
	var video Video

	upgraded, err := upgradeManifest(data)
	if err != nil {
		return video, err
	}

	if err := json.Unmarshal(upgraded, &video); err != nil {
		return Video{}, &DecodeError{Reason: "structurally invalid manifest", Err: err}
	}

	// Authors repeat across annotations; share one backing copy per operation
	interned := NewUserInternTable()
	video.Author = interned.Intern(video.Author)
	for idx, annotation := range video.Annotations {
		annotation.Author = interned.Intern(annotation.Author)
		video.Annotations[idx] = annotation
	}

	return video, nil
}

/*
DecodeManifestInfo parse UTF-8 JSON manifest bytes into a listing summary
without materializing the annotation sequence.

	@param data []byte - manifest bytes
	@returns decoded summary
*/
func DecodeManifestInfo(data []byte) (VideoInfo, error) {
	upgraded, err := upgradeManifest(data)
	if err != nil {
		return VideoInfo{}, err
	}

	var info VideoInfo
	if err := json.Unmarshal(upgraded, &info); err != nil {
		return VideoInfo{}, &DecodeError{Reason: "structurally invalid manifest", Err: err}
	}
	return info, nil
}
