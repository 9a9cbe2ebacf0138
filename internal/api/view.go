package api

import (
	"html/template"

	"plantscan/internal/render"
	"plantscan/internal/session"
)

const viewTemplateName = "view"

type pageData struct {
	View      session.View
	Notice    string
	HasPhoto  bool
	Stamp     int64
	MaxUpload int64
}

var viewFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"taxonomyRows": func(t render.TaxonomyView) [][2]string {
		return t.Rows()
	},
}

func newViewTemplate() *template.Template {
	return template.Must(template.New(viewTemplateName).Funcs(viewFuncs).Parse(viewHTML))
}

const viewHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>plantscan</title>
{{if eq .View.State "loading"}}<meta http-equiv="refresh" content="2">{{end}}
<style>
body { font-family: system-ui, sans-serif; background: #f8f9fa; margin: 0; padding: 20px; }
main { max-width: 640px; margin: 0 auto; }
.photo { display: block; width: 300px; height: 300px; object-fit: cover; border-radius: 50%; margin: 40px auto 20px; box-shadow: 0 10px 60px rgba(0,0,0,.5); }
.retake { display: block; margin: 20px auto 10px; padding: 14px 28px; border-radius: 30px; border: 2px solid #5a5a5a; background: #3a3a3a; color: #f5f5f5; font-weight: bold; text-transform: uppercase; letter-spacing: 1.2px; }
.card { padding: 15px; border-radius: 10px; margin-bottom: 20px; box-shadow: 0 3px 5px rgba(0,0,0,.2); }
.row { display: flex; gap: 12px; }
.row > div { width: 50%; }
.title { font-size: 22px; font-weight: bold; color: #333; margin: 0; }
.subtitle { font-size: 16px; font-style: italic; color: #555; margin-top: 10px; }
.taxonomy { background: #faf9f6; opacity: .8; border-radius: 8px; padding: 10px; margin-top: 10px; }
.taxonomy h3 { margin: 0 0 5px; font-size: 18px; }
.readmore { color: #1e90ff; display: inline-block; margin-top: 10px; }
.similar img { width: 64px; height: 64px; object-fit: cover; border-radius: 6px; margin: 8px 6px 0 0; }
.loading { color: #888; margin-top: 20px; text-align: center; }
.error { background: #f8d7da; border-radius: 8px; padding: 12px; margin-top: 20px; }
.shutter { text-align: center; margin-top: 120px; }
</style>
</head>
<body>
<main>
{{if .Notice}}<p class="error">{{.Notice}}</p>{{end}}
{{if eq .View.State "idle"}}
<form class="shutter" method="post" action="/capture" enctype="multipart/form-data">
  <input type="file" name="image" accept="image/*" capture="environment" required>
  <button class="retake" type="submit">📸 Identify</button>
</form>
{{else}}
{{if .HasPhoto}}<img class="photo" src="/api/capture/photo?v={{.Stamp}}" alt="{{.View.Capture.Name}}">{{end}}
<form method="post" action="/discard"><button class="retake" type="submit">📸 Take Another Picture</button></form>
{{if eq .View.State "loading"}}<p class="loading">📡 {{.View.LoadingText}}</p>{{end}}
{{if eq .View.State "failed"}}<p class="error">Identification failed: {{.View.Error}}</p>{{end}}
{{if eq .View.State "ready"}}{{if not .View.Cards}}<p class="loading">No suggestions returned.</p>{{end}}{{end}}
{{range .View.Cards}}
<section class="card" style="background-color: {{.Color}}">
  <div class="row">
    <div>
      <p class="title">{{.Name}}</p>
      <p class="subtitle">Common Name: {{.CommonName}}</p>
      <p class="subtitle">Probability: {{.Percent}}%</p>
    </div>
    <div><p>{{.Description}}</p></div>
  </div>
  <div class="taxonomy">
    <h3>Taxonomy:</h3>
    {{range taxonomyRows .Taxonomy}}<div>{{index . 0}}: {{index . 1}}</div>{{end}}
  </div>
  {{if .SimilarImages}}<div class="similar">{{range .SimilarImages}}<img src="{{.}}" alt="similar">{{end}}</div>{{end}}
  {{if .ReadMoreURL}}<a class="readmore" href="/read-more/{{.Index}}" target="_blank" rel="noopener">Read more →</a>{{end}}
</section>
{{end}}
{{end}}
</main>
</body>
</html>
`
