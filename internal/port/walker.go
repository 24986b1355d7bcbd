package port

// Document is one discovered source file, addressed relative to the walk
// root so chunk metadata stays stable across machines.
type Document struct {
	AbsPath string
	RelPath string
	Size    int64
}

// Walker discovers ingestable documents under a root.
type Walker interface {
	Walk(root string) ([]Document, error)
}
