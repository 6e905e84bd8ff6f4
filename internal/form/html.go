package form

import (
	"bytes"
	"html/template"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
)

var formTmpl = template.Must(template.New("form").Parse(`<form class="record-form" method="post" action="{{.Action}}" data-table="{{.Table}}" data-mode="{{.Mode}}">
<h2>{{if eq .Mode "edit"}}Edit{{else}}New{{end}} {{.Title}}</h2>
{{- range .Controls}}
{{.}}
{{- end}}
<div class="actions">
<button type="submit"{{if not .CanSubmit}} disabled{{end}}>{{if eq .Mode "edit"}}Update{{else}}Create{{end}}</button>
</div>
</form>
`))

// HTML renders the whole form posting to action.
func (s State) HTML(action string, u field.Uploader) (template.HTML, error) {
	data := struct {
		Action    string
		Table     string
		Title     string
		Mode      string
		CanSubmit bool
		Controls  []template.HTML
	}{
		Action:    action,
		Table:     s.Schema.Name(),
		Title:     s.Schema.DisplayTitle(),
		Mode:      s.Mode.String(),
		CanSubmit: s.CanSubmit(),
	}
	for _, c := range s.Controls(u, nil) {
		h, err := c.HTML()
		if err != nil {
			return "", err
		}
		data.Controls = append(data.Controls, h)
	}
	var buf bytes.Buffer
	if err := formTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
