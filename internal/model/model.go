package model

import (
	"context"
	"time"
)

// Capability names one user-facing generation workflow.
type Capability string

const (
	CapabilityCareerImage      Capability = "career_image"
	CapabilityMergeImages      Capability = "merge_images"
	CapabilityEditImage        Capability = "edit_image"
	CapabilityRemoveBackground Capability = "remove_background"
	CapabilityProImage         Capability = "pro_image"
	CapabilityVideo            Capability = "video"
	CapabilityExamDocument     Capability = "exam_document"
	CapabilityOnlineQuiz       Capability = "online_quiz"
	CapabilityConvertDocument  Capability = "convert_document"
)

// Premium reports whether the capability requires the credential-selection step.
func (c Capability) Premium() bool {
	return c == CapabilityProImage || c == CapabilityVideo
}

// Subject is a school subject as shown to teachers.
type Subject string

const (
	SubjectMath       Subject = "Toán"
	SubjectVietnamese Subject = "Tiếng Việt"
	SubjectEnglish    Subject = "Tiếng Anh"
	SubjectIT         Subject = "Tin học"
	SubjectTech       Subject = "Công nghệ"
	SubjectScience    Subject = "Khoa học"
	SubjectHistGeo    Subject = "Lịch sử và Địa lý"
)

// ResolutionTier is the output size of a high-resolution image.
type ResolutionTier string

const (
	Resolution1K ResolutionTier = "1K"
	Resolution2K ResolutionTier = "2K"
	Resolution4K ResolutionTier = "4K"
)

// Valid reports whether r is one of the supported tiers.
func (r ResolutionTier) Valid() bool {
	switch r {
	case Resolution1K, Resolution2K, Resolution4K:
		return true
	}
	return false
}

// AspectRatio of a generated video.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// Valid reports whether a is one of the supported video ratios.
func (a AspectRatio) Valid() bool {
	return a == AspectLandscape || a == AspectPortrait
}

// ExamConfig describes the exam a teacher wants generated.
// MatrixFile and SpecFile are optional attachments.
type ExamConfig struct {
	Subject    Subject
	Grade      string
	Semester   string
	MatrixFile *MediaFile
	SpecFile   *MediaFile
}

// QuestionType tags a quiz question variant.
type QuestionType string

const (
	QuestionMCQ      QuestionType = "MCQ"
	QuestionMatching QuestionType = "MATCHING"
	QuestionFillIn   QuestionType = "FILL_IN"
)

// MatchingPair links an item of column A to its counterpart in column B.
type MatchingPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// FillInPart is a passage with blanks, its word bank and the expected words.
type FillInPart struct {
	Text     string   `json:"text"`
	Blanks   int      `json:"blanks"`
	WordBank []string `json:"wordBank"`
	Answers  []string `json:"answers"`
}

// Question is one item of a QuizDocument. Which fields are set depends on Type.
type Question struct {
	ID            int            `json:"id"`
	Type          QuestionType   `json:"type"`
	Text          string         `json:"text"`
	Options       []string       `json:"options,omitempty"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
	MatchingPairs []MatchingPair `json:"matchingPairs,omitempty"`
	FillInParts   []FillInPart   `json:"fillInParts,omitempty"`
}

// QuizDocument is the structured output of online quiz synthesis.
type QuizDocument struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// ResultKind tags the populated variant of a GenerationResult.
type ResultKind string

const (
	ResultImage          ResultKind = "image"
	ResultVideo          ResultKind = "video"
	ResultText           ResultKind = "text"
	ResultStructuredQuiz ResultKind = "structured_quiz"
)

// Video is a finished video asset held in memory.
type Video struct {
	Data     []byte
	MIMEType string
}

// GenerationResult is the outcome of one capability call. Exactly one of
// DataURI, Video, Text or Quiz is set, as indicated by Kind.
type GenerationResult struct {
	Kind    ResultKind
	DataURI string
	Video   *Video
	Text    string
	Quiz    *QuizDocument
}

// ImageResult builds an image result.
func ImageResult(dataURI string) GenerationResult {
	return GenerationResult{Kind: ResultImage, DataURI: dataURI}
}

// VideoResult builds a video result.
func VideoResult(v *Video) GenerationResult {
	return GenerationResult{Kind: ResultVideo, Video: v}
}

// TextResult builds a text result.
func TextResult(s string) GenerationResult {
	return GenerationResult{Kind: ResultText, Text: s}
}

// QuizResult builds a structured quiz result.
func QuizResult(q *QuizDocument) GenerationResult {
	return GenerationResult{Kind: ResultStructuredQuiz, Quiz: q}
}

// GenerationStatus is the lifecycle state of a logged generation attempt.
type GenerationStatus string

const (
	GenerationRunning   GenerationStatus = "running"
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation is one row of the operational log. It never holds media or prompts.
type Generation struct {
	ID          string           `json:"id"`
	Capability  Capability       `json:"capability"`
	Model       string           `json:"model"`
	Status      GenerationStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	OutputMIME  string           `json:"output_mime,omitempty"`
	OutputBytes int              `json:"output_bytes"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

// Duration returns how long the attempt took, or zero while it is running.
func (g Generation) Duration() time.Duration {
	if g.FinishedAt == nil {
		return 0
	}
	return g.FinishedAt.Sub(g.StartedAt)
}

type clientCtxKey struct{}

// ContextWithClientID stores the caller identity used by the in-flight guard.
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientCtxKey{}, id)
}

// ClientIDFromContext retrieves the caller identity (empty string if not set).
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientCtxKey{}).(string)
	return id
}

// AuthSession is a signed-in admin session.
type AuthSession struct {
	ID        string    `json:"-"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
