// Package main provides a TCP lookup server for stressdb.
package main

import (
	"encoding/json"
)

// Response is the server's answer to one line from the client.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // "query", "session" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// QueryResponse contains tabular results. Status is set for curve,
// interpolation and candidate queries: "ok", "no candidates" or "undefined".
type QueryResponse struct {
	Statement   string     `json:"statement"`
	Status      string     `json:"status,omitempty"`
	Columns     []string   `json:"columns"`
	Data        [][]string `json:"data"`
	RecordsRead int        `json:"records_read"`
	TimeMs      float64    `json:"time_ms"`
}

// SessionResponse reports the connection's session after USE, SELECT,
// CLEAR or RESET.
type SessionResponse struct {
	Statement  string            `json:"statement"`
	Variant    string            `json:"variant"`
	Selection  map[string]string `json:"selection"`
	Candidates int               `json:"candidates"`
	TimeMs     float64           `json:"time_ms"`
}

// AuthResponse contains the result of an AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func errorResponse(responseType string, err error) Response {
	return Response{Success: false, Type: responseType, Error: err.Error()}
}

func resultResponse(responseType string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(responseType, err)
	}
	return Response{Success: true, Type: responseType, Result: data}
}
