// Package locale serves the storefront's language list and UI
// translations.
package locale

import "errors"

var ErrNotFound = errors.New("locale not found")

type Locale struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	IsActive  bool   `json:"isActive"`
}

type Translation struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}
