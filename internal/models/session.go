package models

import "time"

// Session is the identity triple supplied by the external sign-in
// widget. Email namespaces remote storage.
type Session struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// CloudSnapshot is the envelope stored in the remote blob store.
type CloudSnapshot struct {
	Tasks       []Task    `json:"tasks"`
	LastUpdated time.Time `json:"lastUpdated"`
}
