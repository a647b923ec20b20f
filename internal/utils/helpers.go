package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSONResponse writes data as a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, status int, data any) error {
	// Use Marshal instead of Encoder so a failed encode can still produce a clean 500
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(jsonData)
	return err
}

// WriteRawJSON writes an already-encoded JSON body. An empty body is written as null.
func WriteRawJSON(w http.ResponseWriter, status int, body json.RawMessage) error {
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
