package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes one cypher statement and returns its rows as maps keyed by
// the RETURN aliases.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any, write bool) ([]map[string]any, error)
}

type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// DriverRunner runs statements through neo4j.ExecuteQuery with managed
// transactions and read/write routing.
type DriverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewDriverRunner(cfg Config) (*DriverRunner, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &DriverRunner{driver: driver, database: cfg.Database}, nil
}

func (r *DriverRunner) Run(ctx context.Context, cypher string, params map[string]any, write bool) ([]map[string]any, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	if write {
		opts = append(opts, neo4j.ExecuteQueryWithWritersRouting())
	} else {
		opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	}

	result, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, record.AsMap())
	}
	return rows, nil
}

func (r *DriverRunner) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *DriverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
