package handlers

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

// cvLabels translates the fixed section headings. Unknown languages fall
// back to English.
var cvLabels = map[string]map[string]string{
	"en": {"summary": "Summary", "experience": "Experience", "education": "Education", "skills": "Skills"},
	"es": {"summary": "Resumen", "experience": "Experiencia", "education": "Educación", "skills": "Habilidades"},
	"fr": {"summary": "Profil", "experience": "Expérience", "education": "Formation", "skills": "Compétences"},
	"de": {"summary": "Profil", "experience": "Berufserfahrung", "education": "Ausbildung", "skills": "Kenntnisse"},
}

// cvTemplate is the only path user strings take into the page, and every
// interpolation is entity-escaped by html/template.
var cvTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #222; margin: 48px; }
  h1 { font-size: 26px; margin: 0 0 2px; }
  .contact { color: #555; font-size: 12px; margin-bottom: 18px; }
  h2 { font-size: 14px; text-transform: uppercase; letter-spacing: 1px;
       border-bottom: 1px solid #bbb; padding-bottom: 3px; margin: 18px 0 8px; }
  .entry { margin-bottom: 10px; }
  .entry .head { font-weight: bold; font-size: 13px; }
  .entry .period { float: right; font-weight: normal; color: #777; font-size: 11px; }
  .entry .detail { font-size: 12px; margin-top: 2px; }
  .skills span { display: inline-block; background: #eee; border-radius: 3px;
       padding: 2px 8px; margin: 2px; font-size: 11px; }
  p { font-size: 12px; line-height: 1.45; }
</style>
</head>
<body>
<h1>{{.FullName}}</h1>
<div class="contact">{{.Email}}{{if .Phone}} · {{.Phone}}{{end}}{{if .Location}} · {{.Location}}{{end}}</div>
{{if .Summary}}<h2>{{.L.summary}}</h2><p>{{.Summary}}</p>{{end}}
{{if .Experience}}<h2>{{.L.experience}}</h2>
{{range .Experience}}<div class="entry">
  <div class="head">{{.Title}}{{if .Company}} · {{.Company}}{{end}}<span class="period">{{.Period}}</span></div>
  {{if .Description}}<div class="detail">{{.Description}}</div>{{end}}
</div>{{end}}{{end}}
{{if .Education}}<h2>{{.L.education}}</h2>
{{range .Education}}<div class="entry">
  <div class="head">{{.Degree}}{{if .School}} · {{.School}}{{end}}<span class="period">{{.Period}}</span></div>
</div>{{end}}{{end}}
{{if .Skills}}<h2>{{.L.skills}}</h2><div class="skills">{{range .Skills}}<span>{{.}}</span>{{end}}</div>{{end}}
</body>
</html>`))

type cvPage struct {
	domain.CVPayload
	L map[string]string
}

// cvHTML validates the payload and builds the escaped page.
func cvHTML(p domain.CVPayload) (string, error) {
	if strings.TrimSpace(p.FullName) == "" {
		return "", domain.Coded(domain.ErrBadPayload, "fullName is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return "", domain.Coded(domain.ErrBadPayload, "email is required")
	}

	labels, ok := cvLabels[strings.ToLower(p.Language)]
	if !ok {
		labels = cvLabels["en"]
	}

	var page bytes.Buffer
	if err := cvTemplate.Execute(&page, cvPage{CVPayload: p, L: labels}); err != nil {
		return "", domain.CodedFrom(domain.ErrInternal, err, "failed to build document")
	}
	return page.String(), nil
}

// RenderCV builds the escaped page and prints it with the
// network-confined renderer. Exposed for the synchronous endpoint as
// well as the queued path.
func (s *Set) RenderCV(ctx context.Context, p domain.CVPayload, out string) error {
	page, err := cvHTML(p)
	if err != nil {
		return err
	}
	return s.tools.RenderHTML(ctx, page, out)
}

func (s *Set) cvGenerate(ctx context.Context, rec *domain.JobRecord, p domain.CVPayload) (string, error) {
	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	return out, s.RenderCV(ctx, p, out)
}
