package common

import (
	"encoding/json"
	"fmt"
)

// manifestMigration one step of the manifest schema upgrade chain
type manifestMigration struct {
	// toVersion schema version this step produces
	toVersion int
	// apply mutate the raw manifest document in place
	apply func(doc map[string]interface{}) error
}

// manifestMigrations ordered upgrade chain. Applied ascending until the
// document reaches CurrentManifestVersion.
var manifestMigrations = []manifestMigration{
	{toVersion: 1, apply: migrateAnnotationTimeToMillis},
	{toVersion: 2, apply: migrateFlatLocation},
}

// migrateAnnotationTimeToMillis version 0 manifests stored annotation time in
// fractional seconds; version 1 stores integer milliseconds.
func migrateAnnotationTimeToMillis(doc map[string]interface{}) error {
	rawAnnotations, ok := doc["annotations"].([]interface{})
	if !ok {
		return nil
	}
	for _, entry := range rawAnnotations {
		annotation, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if seconds, ok := annotation["time"].(float64); ok {
			annotation["time"] = float64(int64(seconds * 1000))
		}
	}
	return nil
}

// migrateFlatLocation version 1 manifests stored the capture location as
// sibling latitude/longitude/accuracy fields; version 2 nests them.
func migrateFlatLocation(doc map[string]interface{}) error {
	lat, hasLat := doc["latitude"].(float64)
	lng, hasLng := doc["longitude"].(float64)
	if !hasLat || !hasLng {
		return nil
	}
	location := map[string]interface{}{"latitude": lat, "longitude": lng}
	if accuracy, ok := doc["accuracy"].(float64); ok {
		location["accuracy"] = accuracy
	} else {
		location["accuracy"] = float64(0)
	}
	doc["location"] = location
	delete(doc, "latitude")
	delete(doc, "longitude")
	delete(doc, "accuracy")
	return nil
}

// upgradeManifest run the migration chain against raw manifest bytes.
//
// Returns the input unchanged when the manifest is already current.
func upgradeManifest(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty manifest stream"}
	}

	var probe struct {
		FormatVersion int `json:"formatVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Reason: "structurally invalid manifest", Err: err}
	}

	if probe.FormatVersion > CurrentManifestVersion {
		return nil, &DecodeError{
			Reason: fmt.Sprintf(
				"manifest version %d is newer than supported version %d",
				probe.FormatVersion,
				CurrentManifestVersion,
			),
		}
	}
	if probe.FormatVersion == CurrentManifestVersion {
		return data, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Reason: "structurally invalid manifest", Err: err}
	}

	version := probe.FormatVersion
	for _, migration := range manifestMigrations {
		if migration.toVersion <= version {
			continue
		}
		if err := migration.apply(doc); err != nil {
			return nil, &DecodeError{
				Reason: fmt.Sprintf("manifest migration to version %d failed", migration.toVersion),
				Err:    err,
			}
		}
		version = migration.toVersion
	}
	doc["formatVersion"] = version

	upgraded, err := json.Marshal(doc)
	if err != nil {
		return nil, &DecodeError{Reason: "failed to re-serialize migrated manifest", Err: err}
	}
	return upgraded, nil
}
