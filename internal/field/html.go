package field

import (
	"bytes"
	"html/template"
	"strconv"
)

var controlTmpl = template.Must(template.New("control").Parse(`<div class="field field-{{.Kind}}{{if .Error}} has-error{{end}}">
<label for="f-{{.Name}}">{{.Label}}{{if .Required}} <span class="required">*</span>{{end}}</label>
{{- if eq .Kind "readonly"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="text" value="{{.Value}}" readonly disabled>
{{- else if eq .Kind "richtext"}}
<textarea id="f-{{.Name}}" name="{{.Name}}" data-editor="rich_text" rows="12">{{.Value}}</textarea>
{{- else if eq .Kind "upload"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="url" value="{{.Value}}" readonly>
<input type="file" data-target="f-{{.Name}}" data-upload="{{.UploadURL}}"{{if .Media}} accept="image/*,video/*"{{end}}{{if .Uploading}} disabled{{end}}>
{{- if .Value}}
<button type="button" data-clear="f-{{.Name}}">Clear</button>
{{- end}}
{{- if .Uploading}}
<span class="uploading">Uploading...</span>
{{- end}}
{{- else if eq .Kind "date"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="{{.InputType}}" value="{{.Value}}">
{{- else if or (eq .Kind "checkbox") (eq .Kind "flag")}}
<input id="f-{{.Name}}" name="{{.Name}}" type="checkbox" value="1"{{if .Checked}} checked{{end}}>
{{- else if eq .Kind "integer"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="number" step="1" value="{{.Value}}"{{with .Min}} min="{{.}}"{{end}}{{with .Max}} max="{{.}}"{{end}}>
{{- else if eq .Kind "number"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="number" step="any" value="{{.Value}}"{{with .Min}} min="{{.}}"{{end}}{{with .Max}} max="{{.}}"{{end}}>
{{- else if eq .Kind "email"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="email" value="{{.Value}}">
{{- else if eq .Kind "url"}}
<input id="f-{{.Name}}" name="{{.Name}}" type="url" value="{{.Value}}">
{{- else if eq .Kind "textarea"}}
<textarea id="f-{{.Name}}" name="{{.Name}}" rows="4"{{with .MaxLength}} maxlength="{{.}}"{{end}}>{{.Value}}</textarea>
{{- else if eq .Kind "select"}}
<select id="f-{{.Name}}" name="{{.Name}}">
<option value="">Select...</option>
{{- range .Options}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>
{{- else}}
<input id="f-{{.Name}}" name="{{.Name}}" type="text" value="{{.Value}}"{{with .MaxLength}} maxlength="{{.}}"{{end}}>
{{- end}}
{{- with .Description}}
<small>{{.}}</small>
{{- end}}
{{- with .Error}}
<span class="error">{{.}}</span>
{{- end}}
</div>
`))

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type controlView struct {
	Kind        string
	Name        string
	Label       string
	Description string
	Value       string
	Required    bool
	Checked     bool
	InputType   string
	Min, Max    string
	MaxLength   string
	Options     []optionView
	UploadURL   string
	Media       bool
	Uploading   bool
	Error       string
}

// UploadBasePath prefixes the upload endpoints in rendered controls.
var UploadBasePath = "/api/upload/"

func (c *Control) view() controlView {
	f := c.Field
	v := controlView{
		Kind:        c.Kind.String(),
		Name:        f.Name,
		Label:       f.Label(),
		Description: f.Description,
		Value:       c.Text(),
		Required:    c.Required,
		Error:       c.Err,
	}
	if msg := c.UploadError(); msg != "" {
		v.Error = msg
	}
	switch c.Kind {
	case KindDate:
		v.InputType = "datetime-local"
		if f.Format == "date" {
			v.InputType = "date"
		}
	case KindCheckbox, KindFlag:
		v.Checked = Truthy(c.Value())
	case KindUpload:
		v.UploadURL = UploadBasePath + string(c.Endpoint())
		v.Media = c.Endpoint() == EndpointMedia
		v.Uploading = c.Uploading()
	case KindSelect:
		for _, o := range f.EnumOptions() {
			v.Options = append(v.Options, optionView{Value: o.Value, Label: o.Label, Selected: o.Value == v.Value})
		}
	}
	if f.Minimum != nil {
		v.Min = strconv.FormatFloat(*f.Minimum, 'f', -1, 64)
	}
	if f.Maximum != nil {
		v.Max = strconv.FormatFloat(*f.Maximum, 'f', -1, 64)
	}
	if f.MaxLength != nil {
		v.MaxLength = strconv.Itoa(*f.MaxLength)
	}
	return v
}

// HTML renders the control with its label and messages.
func (c *Control) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := controlTmpl.Execute(&buf, c.view()); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
