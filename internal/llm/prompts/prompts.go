package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/truonghoc/studio/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{
			"upper":  strings.ToUpper,
			"points": formatPoints,
		}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// ExamData holds template data for exam prompts.
type ExamData struct {
	Subject    model.Subject
	Grade      string
	Semester   string
	Blueprint  Blueprint
	MCQCount   int
	MCQPoints  float64
	Matching   int
	FillIn     int
	HasMatrix  bool
	HasSpec    bool
	Structured bool
}

// BuildExamPrompt builds the exam generation instruction for cfg. With
// structured set, the model is told to answer with a raw JSON QuizDocument;
// otherwise with an HTML fragment meant for a Word document.
func BuildExamPrompt(cfg model.ExamConfig, structured bool) string {
	bp := BlueprintFor(cfg.Subject)
	data := ExamData{
		Subject:    cfg.Subject,
		Grade:      cfg.Grade,
		Semester:   cfg.Semester,
		Blueprint:  bp,
		MCQCount:   bp.Count(model.QuestionMCQ),
		MCQPoints:  bp.Points(model.QuestionMCQ),
		Matching:   bp.NumberOf(model.QuestionMatching),
		FillIn:     bp.NumberOf(model.QuestionFillIn),
		HasMatrix:  cfg.MatrixFile != nil,
		HasSpec:    cfg.SpecFile != nil,
		Structured: structured,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "exam", data); err != nil {
		// Templates are embedded and exercised by tests; a failure here is a build defect.
		panic(fmt.Sprintf("execute exam template: %v", err))
	}
	return collapseBlankLines(buf.String())
}

// CareerPrompt asks for the portrait to be placed into a career scene.
func CareerPrompt(career string) string {
	return fmt.Sprintf(`Đây là ảnh khuôn mặt của một người. Hãy tạo một hình ảnh thực tế chất lượng cao, ghép khuôn mặt người này vào vai một %s (nghề nghiệp).
Giữ các đặc điểm khuôn mặt dễ nhận biết. Bối cảnh phải phù hợp với nghề nghiệp.
Tỉ lệ ảnh 1:1.`, career)
}

// MergePrompt composites the subject of the first image into the second.
const MergePrompt = `Ghép người từ hình ảnh thứ nhất vào bối cảnh của hình ảnh thứ hai.
Hãy làm cho ánh sáng, bóng đổ và tỷ lệ thật tự nhiên và chân thực.
Người nên là tiêu điểm chính trong khung cảnh mới.`

// RemoveBackgroundPrompt isolates the subject on solid white.
const RemoveBackgroundPrompt = "Remove the background completely. Isolate the main subject and place it on a pure solid white background. Do not alter the subject."

// DefaultVideoMotion is used when the teacher gives no motion description.
const DefaultVideoMotion = "Làm chuyển động hình ảnh này một cách tự nhiên"

// ConvertDocumentPrompt turns a scanned page or PDF into an HTML fragment.
const ConvertDocumentPrompt = `Bạn là công cụ chuyển đổi tài liệu. Hãy đọc tài liệu đính kèm (ảnh chụp hoặc PDF) và chuyển toàn bộ nội dung sang HTML.
- Chỉ trả về phần nội dung bên trong thẻ body, không cần tag html/head, không bọc trong markdown code block.
- Giữ nguyên cấu trúc: tiêu đề, đoạn văn, danh sách, chữ in đậm/in nghiêng.
- Bảng biểu phải được dựng lại bằng <table> với đúng số hàng, số cột và ô gộp (rowspan/colspan).
- Tiêu đề chính đặt trong <p class="title">.
- Không thêm, bớt hay diễn giải lại nội dung.`

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// collapseBlankLines trims trailing spaces and squeezes runs of empty lines
// left behind by optional template sections.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}
