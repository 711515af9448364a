package api

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// CreateDeveloperRequest is the body for POST /api/v1/developers.
type CreateDeveloperRequest struct {
	Name string `json:"name"`
}
