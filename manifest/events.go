package manifest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Listener is a callback function that receives events during a check.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventDistFetched is emitted when a Release and its Release.gpg have been fetched and decoded.
type EventDistFetched struct {
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
	Suite  string `json:"suite,omitempty"`
	Files  int    `json:"files,omitempty"`
}

func (e EventDistFetched) String() string { return jsonString(e) }

// EventSignatureDecoded is emitted with the decoded fields of a Release.gpg.
type EventSignatureDecoded struct {
	Source        string            `json:"source,omitempty"`
	Type          string            `json:"type,omitempty"`
	KeyAlgorithm  string            `json:"key_algorithm,omitempty"`
	HashAlgorithm string            `json:"hash_algorithm,omitempty"`
	Issuer        string            `json:"issuer,omitempty"`
	Created       time.Time         `json:"created,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

func (e EventSignatureDecoded) String() string { return jsonString(e) }

// EventSignatureVerified is emitted when a Release.gpg verifies against the trusted keys.
type EventSignatureVerified struct {
	Source      string   `json:"source,omitempty"`
	KeyID       string   `json:"key_id,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	UserIDs     []string `json:"user_ids,omitempty"`
}

func (e EventSignatureVerified) String() string { return jsonString(e) }

// EventIndexChecked is emitted when a Packages index matches its Release hashes.
type EventIndexChecked struct {
	Source       string `json:"source,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	Packages     int    `json:"packages"`
}

func (e EventIndexChecked) String() string { return jsonString(e) }

// EventSourceFailed is emitted when any step of a source check fails.
type EventSourceFailed struct {
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (e EventSourceFailed) String() string { return jsonString(e) }
