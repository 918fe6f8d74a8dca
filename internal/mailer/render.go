package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"bank-ledger-go/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a named template and its data into an HTML body.
type Renderer struct {
	bank  *models.BankProfile
	mu    sync.Mutex
	cache map[string]*template.Template
}

func NewRenderer(bank *models.BankProfile) *Renderer {
	return &Renderer{bank: bank, cache: make(map[string]*template.Template)}
}

type view struct {
	Subject string
	Bank    *models.BankProfile
	Data    map[string]any
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache[name]; ok {
		return t, nil
	}
	t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
	if err != nil {
		return nil, fmt.Errorf("unknown email template %q: %w", name, err)
	}
	r.cache[name] = t
	return t, nil
}

func (r *Renderer) Render(name, subject string, data map[string]any) (string, error) {
	t, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view{Subject: subject, Bank: r.bank, Data: data}); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
