package models

import "time"

// FileTypePhoto is the only file type the upload flow produces.
const FileTypePhoto = "photo"

// Post is a single feed entry referencing an image stored on the external host.
type Post struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Caption   string    `json:"caption" db:"caption"`
	URL       string    `json:"url" db:"url"`
	FileType  string    `json:"file_type" db:"file_type"`
	FileName  string    `json:"file_name" db:"file_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
