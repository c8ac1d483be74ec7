// Package models defines the server-side theme data model.
package models

import (
	"slices"
	"time"
)

// Record is one immutable theme version. CSS lives in blob storage; the
// metadata repositories persist everything else.
type Record struct {
	Version   string    `json:"version"`
	UserID    string    `json:"userId"`
	Hash      string    `json:"hash"`
	CSS       string    `json:"css,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ManifestEntry is the manifest's view of one version.
type ManifestEntry struct {
	Version   string    `json:"version"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manifest indexes a user's versions, newest first, plus the active one.
type Manifest struct {
	CurrentVersion *string         `json:"currentVersion"`
	Versions       []ManifestEntry `json:"versions"`
}

// Upsert replaces any entry with the same version, appends e and re-sorts
// by CreatedAt descending. Equal timestamps keep their relative order.
func (m *Manifest) Upsert(e ManifestEntry) {
	m.Versions = slices.DeleteFunc(m.Versions, func(x ManifestEntry) bool {
		return x.Version == e.Version
	})
	m.Versions = append(m.Versions, e)
	slices.SortStableFunc(m.Versions, func(a, b ManifestEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// Has reports whether version is listed.
func (m *Manifest) Has(version string) bool {
	return slices.ContainsFunc(m.Versions, func(x ManifestEntry) bool {
		return x.Version == version
	})
}

// VersionIDs returns the version ids in manifest order.
func (m *Manifest) VersionIDs() []string {
	ids := make([]string, 0, len(m.Versions))
	for _, v := range m.Versions {
		ids = append(ids, v.Version)
	}
	return ids
}

// ThemeInfo is the projection served to clients describing the active theme.
type ThemeInfo struct {
	UserID         string `json:"userId"`
	HasCustomTheme bool   `json:"hasCustomTheme"`
	Version        string `json:"userThemeVersion,omitempty"`
	Hash           string `json:"userThemeHash,omitempty"`
	ContentURL     string `json:"userCSSUrl,omitempty"`
}
