// Package models defines the client-side theme data model.
package models

import "time"

// Record is a locally cached theme version.
type Record struct {
	Version   string    `json:"version"`
	CSS       string    `json:"css"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId,omitempty"`
}

// UserInfo is the server's view of the active theme.
type UserInfo struct {
	UserID         string `json:"userId"`
	HasCustomTheme bool   `json:"hasCustomTheme"`
	Version        string `json:"userThemeVersion,omitempty"`
	Hash           string `json:"userThemeHash,omitempty"`
	ContentURL     string `json:"userCSSUrl,omitempty"`
}

// SubmitResult is the server's answer to an accepted submission.
type SubmitResult struct {
	Success bool   `json:"success"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
	CSSURL  string `json:"cssUrl"`
}
