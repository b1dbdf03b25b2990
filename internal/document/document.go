// Package document packages generated results for download: Word-compatible
// HTML documents and download file names.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WordMIME is the content type of exported documents.
const WordMIME = "application/msword"

// VideoFileName is the download name of every generated video.
const VideoFileName = "veo-video.mp4"

const bom = "\ufeff"

var wordTmpl = template.Must(template.New("word").Parse(`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head>
<meta charset='utf-8'>
<title>{{.Title}}</title>
<style>
body { font-family: 'Times New Roman', serif; font-size: 14pt; line-height: 1.5; }
table { border-collapse: collapse; width: 100%; margin-bottom: 10px; }
td, th { border: 1px solid black; padding: 5px; }
.title { text-align: center; font-weight: bold; font-size: 16pt; margin-bottom: 20px; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// WrapWord embeds an HTML fragment in a document Word opens as a .doc file.
// The fragment is inserted verbatim; the title is escaped.
func WrapWord(title, fragment string) []byte {
	if strings.TrimSpace(title) == "" {
		title = "Document Converted"
	}
	var buf bytes.Buffer
	buf.WriteString(bom)
	err := wordTmpl.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(fragment)})
	if err != nil {
		panic(fmt.Sprintf("execute word template: %v", err))
	}
	return buf.Bytes()
}

// ConvertedFileName names the export of a converted document after its
// source file: "scan.pdf" becomes "Converted_scan.doc".
func ConvertedFileName(source string) string {
	base := filepath.Base(strings.ReplaceAll(source, `\`, "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	base = Slug(base)
	if base == "" {
		base = "Document"
	}
	return "Converted_" + base + ".doc"
}

// ExamFileName names an exported exam, e.g. "De_thi_Toan_Lop_5.doc".
func ExamFileName(subject, grade string) string {
	parts := []string{"De_thi"}
	for _, p := range []string{subject, grade} {
		if s := Slug(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_") + ".doc"
}

// ImageFileName names a generated image after its creation time.
func ImageFileName(now time.Time, mimeType string) string {
	return fmt.Sprintf("ai-generated-%d%s", now.UnixMilli(), extensionFor(mimeType, ".png"))
}

func extensionFor(mimeType, fallback string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return fallback
}

// Slug strips Vietnamese diacritics and joins words with underscores so the
// result is safe in a Content-Disposition header.
func Slug(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	sep := false
	for _, r := range out {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
		default:
			sep = true
		}
	}
	return b.String()
}
