package models

// Customer berasal dari platform data eksternal, tidak disimpan lokal.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
