package email

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"Newsletterwebserver/internal/domain"
)

const digestTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px;">
    <h1 style="text-align: center; color: #003366;">{{.Heading}}</h1>
{{- range .Sections}}
    <h2 style="color: #003366; border-bottom: 2px solid #007bff; padding-bottom: 4px;">{{.Category}}</h2>
    {{- range .Items}}
    <div style="border: 1px solid #ddd; padding: 20px; border-radius: 8px; margin-bottom: 20px; display: flex; gap: 20px;">
        <div style="flex: 1;">
            <span style="color: #007bff; font-weight: bold; font-size: 12px;">{{upper .Category}}</span>
            <h4 style="margin: 5px 0 10px;">{{.Title}}</h4>
            {{- if .CompanyName}}
            <p style="margin: 0 0 6px; color: #555; font-size: 13px;">{{.CompanyName}}</p>
            {{- end}}
            <p style="margin: 0 0 10px;">{{.Description}}</p>
            {{- if .LinkURL}}
            <a href="{{.LinkURL}}" style="background-color: #007bff; color: white; padding: 8px 16px; text-decoration: none; border-radius: 4px;">Lire la suite</a>
            {{- end}}
        </div>
        {{- if .ImageURL}}
        <img src="{{.ImageURL}}" alt="" style="width: 180px; height: auto; border-radius: 8px;">
        {{- end}}
    </div>
    {{- end}}
{{- else}}
    <p style="text-align: center;">Aucune offre cette semaine.</p>
{{- end}}
    <p style="text-align: center; font-size: 13px; color: #777; margin-top: 30px;">
        {{.Footer}}
    </p>
</body>
</html>
`

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).Parse(digestTemplate))

type DigestSection struct {
	Category string
	Items    []domain.Submission
}

type digestData struct {
	Title    string
	Heading  string
	Footer   string
	Sections []DigestSection
}

// GroupByCategory orders approved submissions by category, newest first
// inside each category.
func GroupByCategory(subs []domain.Submission) []DigestSection {
	sorted := make([]domain.Submission, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := strings.ToLower(sorted[i].Category), strings.ToLower(sorted[j].Category)
		if ci != cj {
			return ci < cj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var out []DigestSection
	for _, s := range sorted {
		if n := len(out); n > 0 && strings.EqualFold(out[n-1].Category, s.Category) {
			out[n-1].Items = append(out[n-1].Items, s)
			continue
		}
		out = append(out, DigestSection{Category: s.Category, Items: []domain.Submission{s}})
	}
	return out
}

// RenderDigest builds the newsletter body from approved submissions. Other
// statuses are skipped.
func RenderDigest(subs []domain.Submission) (string, error) {
	approved := make([]domain.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status == domain.SubmissionApproved {
			approved = append(approved, s)
		}
	}

	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, digestData{
		Title:    "Newsletter Locale",
		Heading:  "LES PLANS MALIN",
		Footer:   "Merci de faire vivre notre ville ♥",
		Sections: GroupByCategory(approved),
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}
