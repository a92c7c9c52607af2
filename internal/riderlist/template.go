package riderlist

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"bakpdlbot/internal/render"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// Builtin lists the names of the templates shipped with riderlist.
func Builtin() ([]string, error) {
	entries, err := fs.ReadDir(builtin, "templates")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// LoadTemplate reads the template at `name`, falling back to the builtin template of that name.
func LoadTemplate(name string) (*template.Template, error) {
	contents, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		contents, err = builtin.ReadFile(path.Join("templates", filepath.Base(name)))
	}
	if err != nil {
		return nil, err
	}
	return template.New(filepath.Base(name)).
		Funcs(render.FuncMap()).
		Option("missingkey=error").
		Parse(string(contents))
}

func Render(w io.Writer, tpl *template.Template, data Data) error {
	return tpl.Execute(w, data)
}
