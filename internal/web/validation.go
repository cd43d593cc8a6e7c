package web

import (
	"net/url"
	"sort"
	"strings"
)

type ValidationResult struct {
	errors map[string][]string
}

func (r *ValidationResult) IsOk() bool {
	return len(r.errors) == 0
}

func (r *ValidationResult) AddError(key, msg string) {
	if r.errors == nil {
		r.errors = make(map[string][]string)
	}
	r.errors[key] = append(r.errors[key], msg)
}

func (r *ValidationResult) HasErrors(key string) bool {
	return len(r.errors[key]) > 0
}

func (r *ValidationResult) GetErrors(key string) []string {
	return r.errors[key]
}

// Error joins every message as "key: msg", ordered by key.
func (r *ValidationResult) Error() string {
	keys := make([]string, 0, len(r.errors))
	for k := range r.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		for _, msg := range r.errors[k] {
			parts = append(parts, k+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

func (r *ValidationResult) Fields() map[string][]string {
	return r.errors
}

func validateURL(r *ValidationResult, key string, value string) {
	if strings.TrimSpace(value) == "" {
		r.AddError(key, "must not be empty")
		return
	}
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" {
		r.AddError(key, "must be an absolute URL")
	} else if u.Scheme != "http" && u.Scheme != "https" {
		r.AddError(key, "must be an http or https URL")
	}
}
