package model

import (
	"regexp"
	"strings"
	"time"
)

// Note is one annotation. The article fields are a snapshot taken at save
// time and are never refreshed.
type Note struct {
	ID           string    `json:"id"`
	ArticleTitle string    `json:"article_title"`
	ArticleSlug  string    `json:"article_slug"`
	ArticleURL   string    `json:"article_url"`
	ArticleDate  string    `json:"article_date"`
	SourceName   string    `json:"source_name"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserNoteRow is the single persisted record holding all of a user's notes,
// newest first.
type UserNoteRow struct {
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Notes     []Note    `json:"notes"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SaveNoteRequest struct {
	ArticleTitle string `json:"article_title"`
	ArticleSlug  string `json:"article_slug"`
	ArticleURL   string `json:"article_url"`
	ArticleDate  string `json:"article_date"`
	SourceName   string `json:"source_name"`
	Content      string `json:"content"`
}

type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// NotesChanged is the payload pushed to a user's live channel.
type NotesChanged struct {
	Op     string `json:"op"`
	NoteID string `json:"note_id"`
	Count  int    `json:"count"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
var slugSpace = regexp.MustCompile(`\s+`)

// Slugify lowercases s, drops everything but letters, digits, spaces and
// dashes, and joins words with dashes.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugStrip.ReplaceAllString(s, "")
	return slugSpace.ReplaceAllString(s, "-")
}
