package api

// TranslateRequest is the point-to-point translate payload. AudioB64
// carries the captured container-format audio, base64 encoded.
type TranslateRequest struct {
	FromLang string `json:"from_lang" validate:"required"`
	ToLang   string `json:"to_lang" validate:"required"`
	AudioB64 string `json:"audio_b64" validate:"required"`
}

// EntryRequest appends one utterance to a session transcript.
type EntryRequest struct {
	T       float64 `json:"t"`
	Dur     float64 `json:"dur"`
	Speaker string  `json:"speaker" validate:"required"`
	Lang    string  `json:"lang" validate:"required"`
	Text    string  `json:"text" validate:"required"`
}

// EntryCreatedResponse returns the identifier assigned to an entry.
type EntryCreatedResponse struct {
	ID int `json:"id"`
}

// SummaryRequest names the language the summary should be written in.
type SummaryRequest struct {
	TargetLang string `json:"targetLang" validate:"required"`
}

// SummaryResponse carries the generated summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// PushResponse reports what an ingest call did.
type PushResponse struct {
	Status    string `json:"status"`
	StreamID  string `json:"stream_id"`
	Bytes     int    `json:"bytes"`
	Listeners int    `json:"listeners"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
