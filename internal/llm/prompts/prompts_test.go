package prompts

import (
	"strings"
	"testing"

	"github.com/truonghoc/studio/internal/model"
)

func TestBlueprintFor(t *testing.T) {
	tests := []struct {
		subject  model.Subject
		category SubjectCategory
		total    int
		mcq      int
		matching int
		fillIn   int
	}{
		{model.SubjectIT, CategoryTechnology, 18, 16, 1, 1},
		{model.SubjectTech, CategoryTechnology, 18, 16, 1, 1},
		{model.SubjectEnglish, CategoryEnglish, 40, 40, 0, 0},
		{model.SubjectMath, CategoryGeneral, 20, 20, 0, 0},
		{model.SubjectVietnamese, CategoryGeneral, 20, 20, 0, 0},
		{model.Subject("Âm nhạc"), CategoryGeneral, 20, 20, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.subject), func(t *testing.T) {
			bp := BlueprintFor(tt.subject)
			if bp.Category != tt.category {
				t.Errorf("category = %v, want %v", bp.Category, tt.category)
			}
			if bp.Total() != tt.total {
				t.Errorf("Total() = %d, want %d", bp.Total(), tt.total)
			}
			if got := bp.Count(model.QuestionMCQ); got != tt.mcq {
				t.Errorf("MCQ count = %d, want %d", got, tt.mcq)
			}
			if got := bp.Count(model.QuestionMatching); got != tt.matching {
				t.Errorf("MATCHING count = %d, want %d", got, tt.matching)
			}
			if got := bp.Count(model.QuestionFillIn); got != tt.fillIn {
				t.Errorf("FILL_IN count = %d, want %d", got, tt.fillIn)
			}
			if bp.TotalPoints() != 10 {
				t.Errorf("TotalPoints() = %v, want 10", bp.TotalPoints())
			}
			for i, s := range bp.Slots {
				if s.Number != i+1 {
					t.Fatalf("slot %d numbered %d", i, s.Number)
				}
			}
		})
	}
}

func TestBlueprintTechnologyOrder(t *testing.T) {
	bp := BlueprintFor(model.SubjectIT)
	s17, ok := bp.SlotAt(17)
	if !ok || s17.Type != model.QuestionMatching {
		t.Errorf("slot 17 = %+v, want MATCHING", s17)
	}
	s18, ok := bp.SlotAt(18)
	if !ok || s18.Type != model.QuestionFillIn {
		t.Errorf("slot 18 = %+v, want FILL_IN", s18)
	}
	if _, ok := bp.SlotAt(19); ok {
		t.Error("slot 19 should not exist")
	}
	if bp.MatchingPairs != 4 {
		t.Errorf("MatchingPairs = %d, want 4", bp.MatchingPairs)
	}
}

func TestBuildExamPromptStructured(t *testing.T) {
	tests := []struct {
		name     string
		subject  model.Subject
		contains []string
		absent   []string
	}{
		{
			name:    "technology",
			subject: model.SubjectIT,
			contains: []string{
				"Bắt buộc tạo đúng 18 câu hỏi",
				"Câu 1 đến câu 16",
				"MCQ: 16, MATCHING: 1, FILL_IN: 1",
				`"id": 17,`,
				`"type": "MATCHING"`,
				`"id": 18,`,
				`"type": "FILL_IN"`,
				"đúng 4 phần tử",
				"ĐỐI VỚI MÔN TIN HỌC",
			},
		},
		{
			name:     "english",
			subject:  model.SubjectEnglish,
			contains: []string{"Bắt buộc tạo đúng 40 câu hỏi trắc nghiệm", "Câu 1 đến câu 40", "MCQ: 40)", "ĐỐI VỚI MÔN TIẾNG ANH"},
			absent:   []string{"MATCHING", "FILL_IN"},
		},
		{
			name:     "general",
			subject:  model.SubjectMath,
			contains: []string{"Bắt buộc tạo đúng 20 câu hỏi trắc nghiệm", "Câu 1 đến câu 20", "MCQ: 20)", "ĐỐI VỚI MÔN TOÁN"},
			absent:   []string{"MATCHING", "FILL_IN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.ExamConfig{Subject: tt.subject, Grade: "Lớp 4", Semester: "Cuối học kỳ I"}
			prompt := BuildExamPrompt(cfg, true)

			for _, want := range tt.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt should contain %q\n%s", want, prompt)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(prompt, unwanted) {
					t.Errorf("prompt should not contain %q", unwanted)
				}
			}
			if !strings.Contains(prompt, "JSON thuần túy") {
				t.Error("structured prompt should demand raw JSON")
			}
			if strings.Contains(prompt, "<h3>") {
				t.Error("structured prompt should not request HTML")
			}
			if !strings.Contains(prompt, "Lớp 4, Cuối học kỳ I") {
				t.Error("prompt should name grade and semester")
			}
		})
	}
}

func TestBuildExamPromptDocument(t *testing.T) {
	prompt := BuildExamPrompt(model.ExamConfig{Subject: model.SubjectTech, Grade: "Lớp 5", Semester: "Giữa học kỳ II"}, false)

	for _, want := range []string{"<h3>", "<b>", "bảng 2 cột", "Đáp án chi tiết", "Bắt buộc tạo đúng 18 câu hỏi"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("document prompt should contain %q", want)
		}
	}
	if strings.Contains(prompt, "JSON thuần túy") {
		t.Error("document prompt should not request JSON")
	}

	general := BuildExamPrompt(model.ExamConfig{Subject: model.SubjectScience}, false)
	if strings.Contains(general, "bảng 2 cột") {
		t.Error("general document prompt should not mention matching tables")
	}
}

func TestBuildExamPromptAttachments(t *testing.T) {
	file := model.MediaFileFromBytes("matrix.png", "image/png", []byte{1})

	t.Run("none", func(t *testing.T) {
		p := BuildExamPrompt(model.ExamConfig{Subject: model.SubjectMath}, true)
		if strings.Contains(p, "file ma trận") || strings.Contains(p, "bản đặc tả") {
			t.Error("prompt should not mention attachments")
		}
	})

	t.Run("matrix only", func(t *testing.T) {
		p := BuildExamPrompt(model.ExamConfig{Subject: model.SubjectMath, MatrixFile: file}, true)
		if !strings.Contains(p, "file ma trận đính kèm") {
			t.Error("prompt should mention the matrix")
		}
		if strings.Contains(p, "bản đặc tả") {
			t.Error("prompt should not mention a spec")
		}
	})

	t.Run("both", func(t *testing.T) {
		p := BuildExamPrompt(model.ExamConfig{Subject: model.SubjectMath, MatrixFile: file, SpecFile: file}, false)
		if !strings.Contains(p, "file ma trận đính kèm") || !strings.Contains(p, "file bản đặc tả đính kèm") {
			t.Error("prompt should mention both attachments")
		}
	})
}

func TestBuildExamPromptDeterministic(t *testing.T) {
	cfg := model.ExamConfig{Subject: model.SubjectIT, Grade: "Lớp 3", Semester: "Cuối năm"}
	if BuildExamPrompt(cfg, true) != BuildExamPrompt(cfg, true) {
		t.Error("BuildExamPrompt should be deterministic")
	}
	if strings.Contains(BuildExamPrompt(cfg, false), "\n\n\n") {
		t.Error("prompt should not contain runs of blank lines")
	}
}

func TestCareerPrompt(t *testing.T) {
	p := CareerPrompt("Bác sĩ")
	if !strings.Contains(p, "vai một Bác sĩ") {
		t.Error("career prompt should name the career")
	}
	if !strings.Contains(p, "1:1") {
		t.Error("career prompt should fix the aspect ratio")
	}
}
