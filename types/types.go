package types

// Fragment is one transcription event from the speech-to-text provider.
// UtteranceEnd fragments carry no text; they are the provider's
// end-of-utterance hint raised independently of fragment finality.
type Fragment struct {
	Text         string
	Final        bool
	SpeechFinal  bool
	UtteranceEnd bool
}

// TwilioEvent is an inbound Twilio Media Streams message.
type TwilioEvent struct {
	Event          string `json:"event"` // "connected", "start", "media", "mark", "stop"
	SequenceNumber string `json:"sequenceNumber"`
	StreamSid      string `json:"streamSid"`
	Start          struct {
		CallSid   string `json:"callSid"`
		StreamSid string `json:"streamSid"`
	} `json:"start"`
	Media struct {
		Payload string `json:"payload"` // base64 audio
	} `json:"media"`
	Mark struct {
		Name string `json:"name"`
	} `json:"mark"`
}
