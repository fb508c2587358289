package voice

// Upstream realtime protocol event types.
const (
	upSessionUpdated       = "session.updated"
	upSpeechStarted        = "input_audio_buffer.speech_started"
	upSpeechStopped        = "input_audio_buffer.speech_stopped"
	upAudioDelta           = "response.audio.delta"
	upAudioTranscriptDone  = "response.audio_transcript.done"
	upUserTranscriptDelta  = "conversation.item.input_audio_transcription.delta"
	upUserTranscriptDone   = "conversation.item.input_audio_transcription.completed"
	upUserTranscriptFailed = "conversation.item.input_audio_transcription.failed"
	upFunctionCallDone     = "response.function_call_arguments.done"
	upResponseDone         = "response.done"
	upError                = "error"
)

// upstreamEvent is the union of fields across realtime events. The Type
// discriminator decides which are populated.
type upstreamEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	ItemID     string `json:"item_id,omitempty"`

	// Function calling
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	Error    *upstreamError    `json:"error,omitempty"`
	Response *upstreamResponse `json:"response,omitempty"`
}

type upstreamError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type upstreamResponse struct {
	Usage *upstreamUsage `json:"usage,omitempty"`
}

type upstreamUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// sessionUpdate configures the realtime session after connect.
type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Instructions            string              `json:"instructions"`
	Voice                   string              `json:"voice"`
	InputAudioFormat        string              `json:"input_audio_format"`
	OutputAudioFormat       string              `json:"output_audio_format"`
	InputAudioTranscription transcriptionConfig `json:"input_audio_transcription"`
	TurnDetection           turnDetection       `json:"turn_detection"`
	Tools                   []toolDefinition    `json:"tools"`
	ToolChoice              string              `json:"tool_choice"`
	Modalities              []string            `json:"modalities"`
	Temperature             float64             `json:"temperature"`
}

type transcriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type toolDefinition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Upstream commands.
type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCreate struct {
	Type string `json:"type"`
}

type itemCreate struct {
	Type string       `json:"type"`
	Item functionItem `json:"item"`
}

type functionItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// Client event types sent to the connected widget or test page.
const (
	EventConnectionStatus    = "connection_status"
	EventVoiceStarted        = "voice_started"
	EventVoiceStopped        = "voice_stopped"
	EventAIAudioDelta        = "ai_audio_delta"
	EventAIResponseText      = "ai_response_text"
	EventUserTranscriptDelta = "user_transcript_delta"
	EventUserTranscript      = "user_transcript"
	EventOpenAIError         = "openai_error"
	EventQuotaExceeded       = "quota_exceeded"
)

// ClientEvent is the JSON envelope delivered to the connected client.
// Type discriminates; the other fields are populated as relevant.
type ClientEvent struct {
	Type       string `json:"type"`
	Status     string `json:"status,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Text       string `json:"text,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Error      string `json:"error,omitempty"`

	// Quota rejection detail.
	Kind  string `json:"kind,omitempty"`
	Used  int    `json:"used,omitempty"`
	Limit int    `json:"limit,omitempty"`
}
