package template

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders text templates with the sprig function library. Parsed
// templates are cached by source text.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		cache: make(map[string]*template.Template),
	}
}

// Validate parses text without executing it.
func (e *Engine) Validate(text string) error {
	_, err := e.parse(text)
	return err
}

// Render executes text against data. Referencing a key absent from data is an
// error.
func (e *Engine) Render(text string, data map[string]interface{}) (string, error) {
	tpl, err := e.parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// Replace renders every string in value that contains a template action,
// descending into maps and slices. Other values are returned as-is.
func (e *Engine) Replace(value interface{}, data map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v, nil
		}
		return e.Render(v, data)
	case map[string]interface{}:
		return e.replaceMap(v, data)
	case []interface{}:
		return e.replaceSlice(v, data)
	default:
		return value, nil
	}
}

func (e *Engine) replaceMap(m map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(m))

	for key, value := range m {
		replacedValue, err := e.Replace(value, data)
		if err != nil {
			return nil, fmt.Errorf("error in key '%s': %w", key, err)
		}
		result[key] = replacedValue
	}

	return result, nil
}

func (e *Engine) replaceSlice(s []interface{}, data map[string]interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(s))

	for i, value := range s {
		replacedValue, err := e.Replace(value, data)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result[i] = replacedValue
	}

	return result, nil
}

func (e *Engine) parse(text string) (*template.Template, error) {
	e.mu.RLock()
	tpl, ok := e.cache[text]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := template.New("").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	e.mu.Lock()
	e.cache[text] = tpl
	e.mu.Unlock()
	return tpl, nil
}
