package notifier

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"math"
	texttemplate "text/template"
	"time"
)

const (
	DefaultSubject = "Your LUmira Verification Code"
	DefaultProduct = "LUmira Exhibitor Portal"
	DefaultTeam    = "LUmira Team"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/otp.txt.tmpl"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/otp.html.tmpl"))
)

// Content is the data rendered into the passcode email.
type Content struct {
	Product         string
	Team            string
	Code            string
	ValidityMinutes int
}

// NewContent rounds validity up to whole minutes, with a floor of one.
func NewContent(code string, validity time.Duration) Content {
	return Content{
		Product:         DefaultProduct,
		Team:            DefaultTeam,
		Code:            code,
		ValidityMinutes: max(1, int(math.Ceil(validity.Minutes()))),
	}
}

// Render returns the plain-text and HTML bodies.
func (c Content) Render() (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := textTmpl.Execute(&tb, c); err != nil {
		return "", "", err
	}
	if err := htmlTmpl.Execute(&hb, c); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}
