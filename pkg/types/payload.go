package types

// Payload holds the raw JSON documents fetched from a Homevolt gateway in a
// single poll. The maps are the decoded documents as-is; no shape is assumed
// beyond "JSON object" or "JSON array".
//
// ErrorReport distinguishes "endpoint unavailable" (nil) from "report fetched
// and empty" (empty slice). Downstream health reporting depends on that
// distinction.
type Payload struct {
	Status      map[string]any
	EMS         map[string]any
	Schedule    map[string]any
	ErrorReport []any
}
