package config

// DBRetryConfig groups DB_BEGIN_MAX_RETRIES and DB_MAX_CONNS in one view.
// It is derived from Config rather than parsed on its own. Nothing outside
// the tests calls GetDBRetryConfig: postgres.NewRunner keeps its own BEGIN
// retry bound and postgres.NewPool sets MaxConns itself.
type DBRetryConfig struct {
	// MaxBeginRetries mirrors DB_BEGIN_MAX_RETRIES.
	MaxBeginRetries int
	// MaxConns mirrors DB_MAX_CONNS.
	MaxConns int32
}

// GetDBRetryConfig returns the DB retry/pool-sizing configuration.
func (c Config) GetDBRetryConfig() DBRetryConfig {
	return DBRetryConfig{
		MaxBeginRetries: c.DBBeginMaxRetries,
		MaxConns:        c.DBMaxConns,
	}
}
