package enum

// StoreBackend 表示持久化儲存的後端
type StoreBackend string

const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendRedis    StoreBackend = "redis"
	StoreBackendPostgres StoreBackend = "postgres"
)

func (b StoreBackend) Valid() bool {
	switch b {
	case StoreBackendMemory, StoreBackendSQLite, StoreBackendRedis, StoreBackendPostgres:
		return true
	}
	return false
}
