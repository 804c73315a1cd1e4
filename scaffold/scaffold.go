// Package scaffold writes the starter configuration of a new pubsite
// installation.
package scaffold

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

// Data holds the template variables passed to every scaffold template.
type Data struct {
	SiteName      string
	SessionSecret string
}

// NewData derives template values for a site name, with a fresh session secret.
func NewData(siteName string) (Data, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Data{}, err
	}
	return Data{SiteName: siteName, SessionSecret: hex.EncodeToString(secret)}, nil
}

// Write renders every template into dir and returns the created paths.
// Existing files are never overwritten unless force is set.
func Write(dir string, data Data, force bool) ([]string, error) {
	const root = "templates"
	var created []string
	err := fs.WalkDir(Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out := strings.TrimSuffix(filepath.Join(dir, rel), ".tmpl")
		if filepath.Base(out) == "dotenv" {
			out = filepath.Join(filepath.Dir(out), ".env.example")
		}
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if _, err := os.Stat(out); err == nil && !force {
			return fmt.Errorf("%s already exists", out)
		}

		content, err := Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", path, err)
		}
		created = append(created, out)
		return nil
	})
	return created, err
}
