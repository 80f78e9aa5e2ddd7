package ai

// ImageRequest asks an ImageProvider for one or more images.
// Zero values mean "provider default".
type ImageRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Size           string // e.g. "1024x1024"
	AspectRatio    string // e.g. "16:9"
	N              int
	Seed           *int
	OutputFormat   string // png, jpg, webp
	Quality        int    // 1..100 where supported
	Steps          int
	ExtraParams    map[string]any
}

// GeneratedImage is one image returned by a provider, either by URL or inline.
type GeneratedImage struct {
	URL           string `json:"url,omitempty"`
	Data          []byte `json:"-"`
	MimeType      string `json:"mime_type,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type ImageResponse struct {
	Model  string           `json:"model,omitempty"`
	Images []GeneratedImage `json:"images"`
}

// URLs lists the remote locations of the generated images.
func (r *ImageResponse) URLs() []string {
	urls := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

// TranscriptionRequest carries recorded audio to a speech-to-text model.
type TranscriptionRequest struct {
	Model    string
	Audio    []byte
	FileName string // used for multipart uploads, e.g. "recording.wav"
	MimeType string
	Language string // optional ISO-639-1 hint
	Prompt   string
}

type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// SpeechRequest asks a text-to-speech model to read Input aloud.
type SpeechRequest struct {
	Model  string
	Input  string
	Voice  string
	Format string // mp3, wav, opus...
	Speed  float32
}

type SpeechResponse struct {
	Audio    []byte
	MimeType string
}
