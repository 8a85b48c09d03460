package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
)

// Neo4jClient wraps the Neo4j driver and persists analysis results
type Neo4jClient struct {
	driver  neo4j.DriverWithContext
	logger  *logger.Logger
	config  config.DatabaseConfig
	metrics *metrics.DatabaseMetricsWrapper
}

// NewNeo4jClient creates a new Neo4j client
func NewNeo4jClient(cfg config.DatabaseConfig, m *metrics.Metrics, log *logger.Logger) (*Neo4jClient, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")

	driverConfig := func(conf *neo4jconfig.Config) {
		conf.MaxConnectionPoolSize = cfg.MaxConns
		conf.ConnectionAcquisitionTimeout = 30 * time.Second
		conf.SocketConnectTimeout = 5 * time.Second
		conf.SocketKeepalive = true

		// Only applies to bolt+s:// and neo4j+s:// URIs
		if cfg.TLSInsecure {
			log.Info("Configuring Neo4j with TLS InsecureSkipVerify=true (development mode)")
			conf.TlsConfig = &tls.Config{
				InsecureSkipVerify: true,
			}
		}
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, driverConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	client := &Neo4jClient{
		driver: driver,
		logger: log.WithService("neo4j"),
		config: cfg,
	}
	if m != nil {
		client.metrics = metrics.NewDatabaseMetricsWrapper(m, "neo4j")
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.Background())
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	client.logger.Info("Connected to Neo4j database",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
	)

	return client, nil
}

// VerifyConnectivity verifies the connection to Neo4j
func (c *Neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the Neo4j driver
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Session creates a new session
func (c *Neo4jClient) Session(ctx context.Context, options ...func(*neo4j.SessionConfig)) neo4j.SessionWithContext {
	sessionConfig := neo4j.SessionConfig{
		DatabaseName: c.config.Database,
	}
	for _, option := range options {
		option(&sessionConfig)
	}
	return c.driver.NewSession(ctx, sessionConfig)
}

// WriteTransaction executes work in a single write transaction
func (c *Neo4jClient) WriteTransaction(ctx context.Context, operation string, work neo4j.ManagedTransactionWork) (interface{}, error) {
	session := c.Session(ctx)
	defer session.Close(ctx)

	var result interface{}
	err := c.metrics.RecordQuery(operation, func() error {
		start := time.Now()
		var err error
		result, err = session.ExecuteWrite(ctx, work)
		c.logger.LogDatabaseQuery(operation, time.Since(start).Seconds()*1000, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteQuery executes a query with parameters
func (c *Neo4jClient) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	if err := validateNeo4jParameters(params); err != nil {
		c.logger.Error("Invalid Neo4j parameters", zap.Error(err))
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	var result *neo4j.EagerResult
	err := c.metrics.RecordQuery("query", func() error {
		start := time.Now()
		var err error
		result, err = neo4j.ExecuteQuery(ctx, c.driver, query, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(c.config.Database))
		c.logger.LogDatabaseQuery(query, time.Since(start).Seconds()*1000, err)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return result, nil
}

// HealthCheck performs a health check on the Neo4j connection
func (c *Neo4jClient) HealthCheck(ctx context.Context) error {
	_, err := c.ExecuteQuery(ctx, "RETURN 1 as health", nil)
	return err
}

// CreateConstraints creates database constraints
func (c *Neo4jClient) CreateConstraints(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT dataset_id_unique IF NOT EXISTS FOR (d:Dataset) REQUIRE d.id IS UNIQUE",
		"CREATE CONSTRAINT column_key_unique IF NOT EXISTS FOR (c:Column) REQUIRE (c.dataset_id, c.name) IS UNIQUE",
	}

	for _, constraint := range constraints {
		if _, err := c.ExecuteQuery(ctx, constraint, nil); err != nil {
			// Continue with other constraints even if one fails
			c.logger.Warn("Failed to create constraint",
				zap.String("constraint", constraint),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("Database constraints created/verified")
	return nil
}

// CreateIndexes creates database indexes for performance
func (c *Neo4jClient) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX dataset_created_at_idx IF NOT EXISTS FOR (d:Dataset) ON (d.created_at)",
		"CREATE INDEX column_detected_type_idx IF NOT EXISTS FOR (c:Column) ON (c.detected_type)",
		"CREATE INDEX column_semantic_type_idx IF NOT EXISTS FOR (c:Column) ON (c.semantic_type)",
	}

	for _, index := range indexes {
		if _, err := c.ExecuteQuery(ctx, index, nil); err != nil {
			c.logger.Warn("Failed to create index",
				zap.String("index", index),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("Database indexes created/verified")
	return nil
}

// validateNeo4jParameters validates that all parameters are Neo4j-compatible
// values: primitives, lists of them, and maps of them for UNWIND batches
func validateNeo4jParameters(params map[string]interface{}) error {
	for key, value := range params {
		if err := validateNeo4jValue(key, value, true); err != nil {
			return err
		}
	}
	return nil
}

func validateNeo4jValue(key string, value interface{}, nested bool) error {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Bool:
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32, reflect.Float64:
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateNeo4jValue(key, v.Index(i).Interface(), nested); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if !nested || v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("parameter '%s' contains invalid map type %T", key, value)
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := validateNeo4jValue(key, iter.Value().Interface(), false); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("parameter '%s' contains invalid type %T (Neo4j only supports primitive types, lists and maps thereof)", key, value)
	}
}
