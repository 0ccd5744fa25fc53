package entity

// HTTPMessage represents a complete HTTP exchange (request + response)
type HTTPMessage struct {
	Request  *HTTPRequest  `json:"request"`
	Response *HTTPResponse `json:"response,omitempty"`
}

// HTTPRequest represents detailed HTTP request info
type HTTPRequest struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Header map[string]string `json:"header"`
}

// HTTPResponse represents detailed HTTP response info
type HTTPResponse struct {
	Proto         string            `json:"proto"`
	StatusCode    int               `json:"status_code"`
	Status        string            `json:"status"`
	Header        map[string]string `json:"header"`
	ContentLength int64             `json:"content_length"`
	FinalURL      string            `json:"final_url"`
}

// AttemptLog is one line of the attempt-log JSONL file
type AttemptLog struct {
	Domain  string  `json:"domain"`
	Attempt Attempt `json:"attempt"`
}
