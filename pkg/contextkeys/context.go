package contextkeys

// Custom key type to avoid collisions with other packages' context values.
type contextKey string

// DBContextKey is the key under which the *gorm.DB handle (pool or
// transaction) is stored in a request context.
const DBContextKey = contextKey("db")
