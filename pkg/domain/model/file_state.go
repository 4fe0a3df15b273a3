package model

import "time"

// FileState records the content fingerprint and modification time of a
// knowledge-base file as of the last successful processing pass. A file is
// reprocessed when either value differs from the freshly computed one.
type FileState struct {
	Path        string
	Fingerprint string // hex-encoded sha256 over the full file content
	ModifiedAt  time.Time
}

// Changed reports whether the freshly observed fingerprint or modification
// time differs from the recorded state. Both signals are checked
// independently: a content change with an unchanged mtime still triggers,
// and vice versa.
func (s *FileState) Changed(fingerprint string, modifiedAt time.Time) bool {
	return s.Fingerprint != fingerprint || !s.ModifiedAt.Equal(modifiedAt)
}
