package notify

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// Event is the announcement being sent
type Event struct {
	ID          string
	Date        time.Time
	Description string
	ImageURL    string
}

// Site describes the sender in the message body
type Site struct {
	Title string
	URL   string
}

type messageData struct {
	Site     Site
	Event    Event
	Date     string
	ImageURL string
}

const subjectTemplate = `{{if .Site.Title}}{{.Site.Title}}: {{end}}New event on {{.Date}}`

const textTemplate = `Hello,

We have a new event coming up on {{.Date}}.

{{.Event.Description}}
{{if .Site.URL}}
Details and booking: {{.Site.URL}}
{{end}}
You are receiving this because you signed up for updates{{if .Site.Title}} from {{.Site.Title}}{{end}}.
`

const htmlTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Georgia, serif; color: #222;">
  <h2>New event on {{.Date}}</h2>
  {{if .ImageURL}}<p><img src="{{.ImageURL}}" alt="" style="max-width: 100%;"></p>{{end}}
  {{range .Paragraphs}}<p>{{.}}</p>{{end}}
  {{if .Site.URL}}<p><a href="{{.Site.URL}}">Details and booking</a></p>{{end}}
  <p style="font-size: 12px; color: #777;">You are receiving this because you signed up for updates{{if .Site.Title}} from {{.Site.Title}}{{end}}.</p>
</body>
</html>`

var (
	subjectTmpl = texttemplate.Must(texttemplate.New("subject").Parse(subjectTemplate))
	textTmpl    = texttemplate.Must(texttemplate.New("text").Parse(textTemplate))
	htmlTmpl    = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate))
)

// Paragraphs is used by the HTML body
func (d messageData) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(d.Event.Description, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Render builds the message for an event without a recipient
func Render(site Site, ev Event) (Message, error) {
	data := messageData{
		Site:     site,
		Event:    ev,
		Date:     ev.Date.Format("Monday, January 2, 2006"),
		ImageURL: absoluteURL(site.URL, ev.ImageURL),
	}

	var subject, text, html strings.Builder
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Message{}, err
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}

// absoluteURL makes site paths such as /uploads/x.jpg usable from a mail client
func absoluteURL(base, ref string) string {
	if ref == "" || !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") || base == "" {
		return ref
	}
	return strings.TrimRight(base, "/") + ref
}
