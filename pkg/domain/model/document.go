package model

// Document is a loaded unit of source content before chunking. Loaders
// produce one Document per file, page or record with provenance metadata
// attached.
type Document struct {
	Content  string
	Source   string
	Metadata map[string]string
}

// NewDocument creates a document with an initialized metadata map
func NewDocument(source, content string) *Document {
	return &Document{
		Content:  content,
		Source:   source,
		Metadata: map[string]string{},
	}
}
