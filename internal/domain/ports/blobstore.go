package ports

import "context"

// BlobStore is the object-storage contract the durability layer consumes.
// It is implemented locally (filesystem, memory) and by whatever remote
// object store the deployment provides; the durability layer never assumes
// more than these four operations.
type BlobStore interface {
	// Put writes data under key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob bytes, or an error wrapping
	// entities.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix. Order is not
	// guaranteed; callers sort by whatever the key embeds.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys []string) error
}
