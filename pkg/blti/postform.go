// pkg/blti/postform.go
package blti

import (
	"html/template"
	"strings"
)

var postTmpl = template.Must(template.New("launch").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>LTI Launch</title></head>
{{if .Debug}}<body>{{else}}<body onload="document.forms[0].submit()">{{end}}
<form method="post" action="{{.Action}}" encType="application/x-www-form-urlencoded">
{{range .Fields}}  <input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}{{if .Debug}}  <button type="submit">{{.Submit}}</button>
{{else}}  <noscript><button type="submit">{{.Submit}}</button></noscript>
{{end}}</form>
</body></html>
`))

type formField struct{ Name, Value string }

type formData struct {
	Action string
	Fields []formField
	Submit string
	Debug  bool
}

// PostData renders the auto-submitting launch form carrying every
// signed parameter as a hidden field. In debug mode the form does not
// auto-submit so the parameters can be inspected before launching.
func PostData(signed *Payload, launchURL string, debug bool) (string, error) {
	submit := signed.Get(ParamSubmitText)
	if submit == "" {
		submit = "Press to Launch External Tool"
	}
	data := formData{Action: launchURL, Submit: submit, Debug: debug}
	for _, k := range signed.Keys() {
		data.Fields = append(data.Fields, formField{Name: k, Value: signed.Get(k)})
	}
	var b strings.Builder
	if err := postTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
