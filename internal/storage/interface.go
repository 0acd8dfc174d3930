package storage

// Interface defines the contract for blob storage operations. It holds the
// pipeline's run-state documents and archived run reports.
type Interface interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}
