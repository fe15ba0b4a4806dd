package httpapi

import (
	"bytes"
	"html/template"
	"net/http"
)

var publicPages = map[string]*template.Template{
	"home":       publicPage(homePage),
	"subscribed": publicPage(subscribedPage),
	"newsletter": publicPage(newsletterPage),
	"stats":      publicPage(statsPage),
	"apropos":    publicPage(aboutPage),
}

func publicPage(body string) *template.Template {
	t := template.Must(template.New("layout").Parse(publicLayout))
	return template.Must(t.New("body").Parse(body))
}

type homeData struct {
	SubscriberCount int
}

type subscribedData struct {
	Email             string
	AlreadySubscribed bool
	SubscriberCount   int
}

type newsletterData struct {
	Preview           bool
	NewsletterContent template.HTML
}

type statsData struct {
	SubscriberCount int
	Views           int64
}

type publicPageData struct {
	Title string
	Page  any
}

// renderPublicPage executes into a buffer first so a template error never
// leaves a half-written page.
func (a *api) renderPublicPage(w http.ResponseWriter, status int, name, title string, page any) {
	t, ok := publicPages[name]
	if !ok {
		a.logger.Error("unknown public page", "page", name)
		writeText(w, http.StatusInternalServerError, genericErrorText)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", publicPageData{Title: title, Page: page}); err != nil {
		a.logger.Error("render public page", "page", name, "err", err)
		writeText(w, http.StatusInternalServerError, genericErrorText)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

const publicLayout = `<!doctype html>
<html lang="fr">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>{{.Title}}</title>
    <style>
      :root{
        --bg:#fff8f0;
        --ink:#1f2937;
        --muted:#6b7280;
        --accent:#e4572e;
        --card:#ffffff;
        --line:#f1e4d8;
      }
      *{box-sizing:border-box}
      body{margin:0;font-family:"Helvetica Neue",Arial,sans-serif;color:var(--ink);background:var(--bg)}
      header{display:flex;align-items:center;justify-content:space-between;gap:16px;padding:20px clamp(16px,4vw,56px)}
      .logo{font-weight:700;font-size:20px;letter-spacing:1px;color:var(--accent);text-decoration:none}
      .nav{display:flex;gap:10px;flex-wrap:wrap}
      .nav a{text-decoration:none;font-weight:600;font-size:14px;padding:8px 14px;border-radius:999px;border:1px solid var(--line);background:var(--card);color:var(--ink)}
      main{max-width:880px;margin:0 auto;padding:0 clamp(16px,4vw,56px) 64px}
      .card{background:var(--card);border:1px solid var(--line);border-radius:16px;padding:24px;margin-top:20px}
      .lead{color:var(--muted);line-height:1.6}
      .count{font-size:28px;font-weight:700;color:var(--accent)}
      form.subscribe{display:flex;gap:10px;flex-wrap:wrap;margin-top:16px}
      form.subscribe input{flex:1;min-width:220px;padding:12px;border-radius:10px;border:1px solid var(--line);font-size:16px}
      .button{display:inline-block;padding:12px 18px;border-radius:10px;border:0;background:var(--accent);color:white;font-weight:600;text-decoration:none;cursor:pointer}
      .preview{padding:10px 14px;border-radius:10px;background:#fef3c7;font-weight:600}
      footer{margin-top:32px;padding-top:16px;border-top:1px solid var(--line);color:var(--muted);font-size:13px}
    </style>
  </head>
  <body>
    <header>
      <a class="logo" href="/">LES PLANS MALIN</a>
      <nav class="nav">
        <a href="/newsletter">Newsletter</a>
        <a href="/apropos">À propos</a>
        <a href="/commercant">Espace commerçant</a>
      </nav>
    </header>
    <main>
      {{template "body" .Page}}
      <footer>Merci de faire vivre notre ville ♥</footer>
    </main>
  </body>
</html>`

const homePage = `<section class="card">
  <h1>La newsletter des bons plans de votre ville</h1>
  <p class="lead">Chaque semaine, les offres des commerçants près de chez vous, directement dans votre boîte mail.</p>
  <p><span class="count">{{.SubscriberCount}}</span> abonnés nous font déjà confiance.</p>
  <form class="subscribe" method="post" action="/subscribe">
    <input type="email" name="email" placeholder="votre@email.fr" required />
    <button class="button" type="submit">Je m'abonne</button>
  </form>
</section>`

const subscribedPage = `<section class="card">
  {{if .AlreadySubscribed}}
  <h1>Vous êtes déjà inscrit</h1>
  <p class="lead">L'adresse {{.Email}} reçoit déjà la newsletter.</p>
  {{else}}
  <h1>Merci pour votre inscription !</h1>
  <p class="lead">Vous recevrez la prochaine édition à l'adresse {{.Email}}.</p>
  {{end}}
  <p><span class="count">{{.SubscriberCount}}</span> abonnés au total.</p>
  <a class="button" href="/newsletter">Lire la newsletter</a>
</section>`

const newsletterPage = `<section class="card">
  {{if .Preview}}<p class="preview">Aperçu de l'édition en préparation</p>{{end}}
  {{.NewsletterContent}}
</section>`

const statsPage = `<section class="card">
  <h1>Statistiques</h1>
  <p>Abonnés : <span class="count">{{.SubscriberCount}}</span></p>
  <p>Vues : <span class="count">{{.Views}}</span></p>
</section>`

const aboutPage = `<section class="card">
  <h1>À propos</h1>
  <p class="lead">Les Plans Malin est une newsletter locale et gratuite qui met en avant les offres des commerces de la ville.</p>
  <p class="lead">Vous êtes commerçant ? Proposez vos offres depuis l'<a href="/commercant">espace commerçant</a>. Chaque offre est relue avant publication.</p>
</section>`
