package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/truonghoc/studio/internal/document"
	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/quiz"
	"github.com/truonghoc/studio/internal/studio"
)

type htmlResponse struct {
	HTML     string `json:"html"`
	FileName string `json:"file_name"`
}

type quizResponse struct {
	Quiz    *model.QuizDocument `json:"quiz"`
	Message string              `json:"message"`
	Issues  []string            `json:"issues,omitempty"`
}

type gradeRequest struct {
	Subject model.Subject       `json:"subject"`
	Quiz    *model.QuizDocument `json:"quiz"`
	Answers map[int]quiz.Answer `json:"answers"`
}

type gradeResponse struct {
	quiz.Score
	Summary string `json:"summary"`
}

type wordRequest struct {
	Title    string `json:"title"`
	HTML     string `json:"html"`
	FileName string `json:"file_name"`
}

// examConfig reads and checks the exam form fields.
func (h *Handler) examConfig(r *http.Request) (model.ExamConfig, error) {
	cfg := model.ExamConfig{
		Subject:  model.Subject(formValue(r, "subject")),
		Grade:    formValue(r, "grade"),
		Semester: formValue(r, "semester"),
	}
	if cfg.Subject != "" && !h.catalog.HasSubject(cfg.Subject) {
		return cfg, fmt.Errorf("%w: subject %q", studio.ErrInvalidInput, cfg.Subject)
	}
	var err error
	if cfg.MatrixFile, err = formFile(r, "matrix"); err != nil {
		return cfg, err
	}
	if cfg.SpecFile, err = formFile(r, "spec"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (h *Handler) handleExamDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	cfg, err := h.examConfig(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	release, ok := h.claim(w, r, model.CapabilityExamDocument)
	if !ok {
		return
	}
	defer release()

	res, err := h.studio.ExamDocument(r.Context(), cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := document.ExamFileName(string(cfg.Subject), cfg.Grade)
	if wantsDownload(r, "format", "doc") {
		title := strings.TrimSpace(fmt.Sprintf("%s %s %s", cfg.Subject, cfg.Grade, cfg.Semester))
		writeAttachment(w, document.WordMIME, name, document.WrapWord(title, res.Text))
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: res.Text, FileName: name})
}

func (h *Handler) handleOnlineQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	cfg, err := h.examConfig(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	release, ok := h.claim(w, r, model.CapabilityOnlineQuiz)
	if !ok {
		return
	}
	defer release()

	res, err := h.studio.OnlineQuiz(r.Context(), cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{
		Quiz:    res.Quiz,
		Message: appI18n.Tp(r.Context(), "QuestionsGenerated", len(res.Quiz.Questions)),
		Issues:  quiz.Validate(res.Quiz, cfg.Subject),
	})
}

func (h *Handler) handleGradeQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.config.MaxUploadMB)<<20)
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: request body: %v", studio.ErrInvalidInput, err))
		return
	}
	if req.Quiz == nil {
		h.writeError(w, r, fmt.Errorf("%w: quiz", studio.ErrMissingInput))
		return
	}

	score := quiz.Grade(req.Quiz, req.Subject, req.Answers)
	writeJSON(w, http.StatusOK, gradeResponse{
		Score: score,
		Summary: appI18n.Td(r.Context(), "ScoreSummary", map[string]any{
			"Earned":  score.Earned,
			"Max":     score.Max,
			"Correct": score.Correct,
			"Total":   score.Total,
		}),
	})
}

func (h *Handler) handleConvertDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := requireFile(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	release, ok := h.claim(w, r, model.CapabilityConvertDocument)
	if !ok {
		return
	}
	defer release()

	res, err := h.studio.ConvertDocument(r.Context(), doc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := document.ConvertedFileName(doc.Name)
	if wantsDownload(r, "format", "doc") {
		writeAttachment(w, document.WordMIME, name, document.WrapWord("", res.Text))
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: res.Text, FileName: name})
}

// handleExportWord wraps an HTML fragment the client already holds.
func (h *Handler) handleExportWord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.config.MaxUploadMB)<<20)
	var req wordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: request body: %v", studio.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		h.writeError(w, r, fmt.Errorf("%w: html", studio.ErrMissingInput))
		return
	}
	name := document.Slug(strings.TrimSuffix(req.FileName, ".doc"))
	if name == "" {
		name = document.Slug(req.Title)
	}
	if name == "" {
		name = "Document"
	}
	writeAttachment(w, document.WordMIME, name+".doc", document.WrapWord(req.Title, req.HTML))
}
