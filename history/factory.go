package history

import "fmt"

// NewStore creates a Store based on the configuration.
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case "", StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(config)
	case StoreTypeRedis:
		return NewRedisStore(config)
	case StoreTypeSQL:
		return NewSQLStore(config)
	case StoreTypeMongo:
		return NewMongoStore(config)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", config.Type)
	}
}

// MustNewStore creates a Store or panics on error.
//
// WARNING: This function should ONLY be used during application
// initialization (e.g., in main() or init()). For runtime store creation,
// use NewStore instead.
func MustNewStore(config StoreConfig) Store {
	store, err := NewStore(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create history store: %v", err))
	}
	return store
}
