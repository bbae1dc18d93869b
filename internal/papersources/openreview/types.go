package openreview

import (
	"encoding/json"
	"strings"
)

// NotesResponse is the body of GET /notes. Notes are kept raw so a single
// malformed note does not fail the whole page.
type NotesResponse struct {
	Notes []json.RawMessage `json:"notes"`
	Count int               `json:"count"`
}

// Note is an API v2 note.
type Note struct {
	ID      string       `json:"id"`
	Forum   string       `json:"forum"`
	ReplyTo *string      `json:"replyto"`
	CDate   *int64       `json:"cdate"`
	PDate   *int64       `json:"pdate"`
	Content Content      `json:"content"`
	Details *NoteDetails `json:"details,omitempty"`
}

// IsTopLevel reports whether the note is a submission rather than a reply.
func (n *Note) IsTopLevel() bool {
	return n.ReplyTo == nil || *n.ReplyTo == ""
}

// NoteDetails holds the optional details=replies expansion.
type NoteDetails struct {
	Replies []Reply `json:"replies"`
}

// Reply is a comment, review or decision in a submission's forum.
type Reply struct {
	ID          string   `json:"id"`
	ReplyTo     string   `json:"replyto"`
	Invitations []string `json:"invitations"`
	Content     Content  `json:"content"`
}

// Field is the {"value": ...} wrapper API v2 uses for every content entry.
type Field struct {
	Value json.RawMessage `json:"value"`
}

// Content maps content keys to wrapped values.
type Content map[string]Field

// String returns the string value of key with NUL bytes removed, or "".
func (c Content) String(key string) string {
	f, ok := c[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return ""
	}
	return sanitize(s)
}

// Strings returns a list value of key. A single string yields a one-element list.
func (c Content) Strings(key string) []string {
	f, ok := c[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(f.Value, &list); err == nil {
		for i := range list {
			list[i] = sanitize(list[i])
		}
		return list
	}
	if s := c.String(key); s != "" {
		return []string{s}
	}
	return nil
}

// Any decodes the value of key without assuming its shape.
func (c Content) Any(key string) any {
	f, ok := c[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(f.Value, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return sanitize(t)
	case []any:
		for i, item := range t {
			if s, ok := item.(string); ok {
				t[i] = sanitize(s)
			}
		}
	}
	return v
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
