package entities

// TranscriptEntry is one utterance record in a session transcript.
// IDs are assigned server-side, strictly increasing from 1 per session.
type TranscriptEntry struct {
	ID      int     `json:"id"`
	T       float64 `json:"t"`   // seconds since session start
	Dur     float64 `json:"dur"` // utterance duration in seconds
	Speaker string  `json:"speaker"`
	Lang    string  `json:"lang"`
	Text    string  `json:"text"`
}
