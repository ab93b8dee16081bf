// Package models defines the plain data types shared between bloggen layers.
package models

import "time"

// SourceFile describes one file discovered under a storage root.
type SourceFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
