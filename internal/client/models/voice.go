package models

// VoiceResult is what the backend made of an uploaded voice command. The
// client renders it and never interprets the transcript itself.
type VoiceResult struct {
	Transcript string `json:"transcript"`
	Item       string `json:"item"`
	Action     string `json:"action"`
	Quantity   int    `json:"quantity"`
	Type       string `json:"type"`
}
