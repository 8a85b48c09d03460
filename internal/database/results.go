package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// Graph layout: (:Dataset)-[:HAS_COLUMN]->(:Column) with
// (:Column)-[:CORRELATES_WITH]->(:Column). Each run artifact is also kept as
// a JSON property on the dataset node so reads return it whole.
const (
	propProfile   = "profile_json"
	propInsights  = "insights_json"
	propDashboard = "dashboard_json"
	propSemantics = "semantics_json"
)

// SaveDataset creates or updates the dataset node
func (c *Neo4jClient) SaveDataset(ctx context.Context, ds *models.Dataset) error {
	query := `
		MERGE (d:Dataset {id: $id})
		SET d.name = $name,
			d.file_name = $file_name,
			d.storage_key = $storage_key,
			d.size_bytes = $size_bytes,
			d.content_type = $content_type,
			d.created_at = $created_at`

	if _, err := c.ExecuteQuery(ctx, query, datasetParams(ds)); err != nil {
		return errors.PersistenceFailure("Failed to save dataset", err)
	}
	return nil
}

// GetDataset returns the dataset record
func (c *Neo4jClient) GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error) {
	query := `MATCH (d:Dataset {id: $id}) RETURN properties(d) AS d`

	result, err := c.ExecuteQuery(ctx, query, map[string]interface{}{"id": datasetID})
	if err != nil {
		return nil, errors.PersistenceFailure("Failed to load dataset", err)
	}
	if len(result.Records) == 0 {
		return nil, errors.NotFound("Dataset not found")
	}

	raw, _ := result.Records[0].Get("d")
	props, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.PersistenceFailure("Dataset node has unexpected shape", nil)
	}
	return datasetFromProps(props), nil
}

// DeleteDataset removes the dataset node, its columns and their relationships
func (c *Neo4jClient) DeleteDataset(ctx context.Context, datasetID string) error {
	deleted, err := c.WriteTransaction(ctx, "delete_dataset", func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (d:Dataset {id: $id})
			OPTIONAL MATCH (d)-[:HAS_COLUMN]->(col:Column)
			DETACH DELETE col, d
			RETURN count(DISTINCT d) AS deleted`,
			map[string]interface{}{"id": datasetID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("deleted")
		return n, nil
	})
	if err != nil {
		return errors.PersistenceFailure("Failed to delete dataset", err)
	}
	if n, _ := deleted.(int64); n == 0 {
		return errors.NotFound("Dataset not found")
	}
	return nil
}

// PersistProfile replaces the profile and the column nodes in one transaction
func (c *Neo4jClient) PersistProfile(ctx context.Context, profile *models.DatasetProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode profile", err)
	}

	_, err = c.WriteTransaction(ctx, "persist_profile", func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if err := setArtifact(ctx, tx, profile.DatasetID, propProfile, payload, map[string]interface{}{
			"row_count":     profile.RowCount,
			"column_count":  profile.ColumnCount,
			"quality_score": profile.Quality.Score,
			"quality_label": string(profile.Quality.Label),
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			MATCH (d:Dataset {id: $id})-[:HAS_COLUMN]->(col:Column)
			WHERE NOT col.name IN $names
			DETACH DELETE col`,
			map[string]interface{}{"id": profile.DatasetID, "names": columnNames(profile)}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			MATCH (d:Dataset {id: $id})
			UNWIND $columns AS c
			MERGE (col:Column {dataset_id: $id, name: c.name})
			MERGE (d)-[:HAS_COLUMN]->(col)
			SET col += c`,
			map[string]interface{}{"id": profile.DatasetID, "columns": columnParams(profile)})
		return nil, err
	})
	if err != nil {
		return persistErr("profile", err)
	}
	return nil
}

// GetProfile returns the latest profile
func (c *Neo4jClient) GetProfile(ctx context.Context, datasetID string) (*models.DatasetProfile, error) {
	var out models.DatasetProfile
	if err := c.getArtifact(ctx, datasetID, propProfile, "profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistInsights replaces the insight report and the correlation edges
func (c *Neo4jClient) PersistInsights(ctx context.Context, report *models.InsightReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode insights", err)
	}

	_, err = c.WriteTransaction(ctx, "persist_insights", func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if err := setArtifact(ctx, tx, report.DatasetID, propInsights, payload, map[string]interface{}{
			"insight_count": len(report.Insights),
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			MATCH (:Dataset {id: $id})-[:HAS_COLUMN]->(:Column)-[r:CORRELATES_WITH]->()
			DELETE r`,
			map[string]interface{}{"id": report.DatasetID}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			MATCH (d:Dataset {id: $id})
			UNWIND $correlations AS corr
			MERGE (x:Column {dataset_id: $id, name: corr.column_x})
			MERGE (y:Column {dataset_id: $id, name: corr.column_y})
			MERGE (d)-[:HAS_COLUMN]->(x)
			MERGE (d)-[:HAS_COLUMN]->(y)
			CREATE (x)-[:CORRELATES_WITH {value: corr.value, strength: corr.strength, direction: corr.direction}]->(y)`,
			map[string]interface{}{"id": report.DatasetID, "correlations": correlationParams(report.Correlations)})
		return nil, err
	})
	if err != nil {
		return persistErr("insights", err)
	}
	return nil
}

// GetInsights returns the latest insight report
func (c *Neo4jClient) GetInsights(ctx context.Context, datasetID string) (*models.InsightReport, error) {
	var out models.InsightReport
	if err := c.getArtifact(ctx, datasetID, propInsights, "insights", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistDashboard replaces the dashboard
func (c *Neo4jClient) PersistDashboard(ctx context.Context, dashboard *models.Dashboard) error {
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode dashboard", err)
	}

	_, err = c.WriteTransaction(ctx, "persist_dashboard", func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return nil, setArtifact(ctx, tx, dashboard.DatasetID, propDashboard, payload, map[string]interface{}{
			"chart_count": len(dashboard.Charts),
		})
	})
	if err != nil {
		return persistErr("dashboard", err)
	}
	return nil
}

// GetDashboard returns the latest dashboard
func (c *Neo4jClient) GetDashboard(ctx context.Context, datasetID string) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.getArtifact(ctx, datasetID, propDashboard, "dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistClassifications replaces the semantic report and labels the columns
func (c *Neo4jClient) PersistClassifications(ctx context.Context, report *models.SemanticReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode classifications", err)
	}

	_, err = c.WriteTransaction(ctx, "persist_classifications", func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if err := setArtifact(ctx, tx, report.DatasetID, propSemantics, payload, map[string]interface{}{
			"classifier": report.Classifier,
		}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			MATCH (d:Dataset {id: $id})
			UNWIND $classifications AS cls
			MERGE (col:Column {dataset_id: $id, name: cls.column_name})
			MERGE (d)-[:HAS_COLUMN]->(col)
			SET col.semantic_type = cls.semantic_type,
				col.semantic_confidence = cls.confidence`,
			map[string]interface{}{"id": report.DatasetID, "classifications": classificationParams(report.Classifications)})
		return nil, err
	})
	if err != nil {
		return persistErr("classifications", err)
	}
	return nil
}

// GetClassifications returns the latest semantic report
func (c *Neo4jClient) GetClassifications(ctx context.Context, datasetID string) (*models.SemanticReport, error) {
	var out models.SemanticReport
	if err := c.getArtifact(ctx, datasetID, propSemantics, "classifications", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// errDatasetMissing aborts a write transaction whose dataset node is absent
var errDatasetMissing = errors.NotFound("Dataset not found")

// setArtifact stores payload under prop and fails when the dataset is absent
func setArtifact(ctx context.Context, tx neo4j.ManagedTransaction, datasetID, prop string, payload []byte, extra map[string]interface{}) error {
	res, err := tx.Run(ctx, fmt.Sprintf(`
		MATCH (d:Dataset {id: $id})
		SET d.%s = $payload, d += $extra, d.updated_at = $updated_at
		RETURN d.id AS id`, prop),
		map[string]interface{}{
			"id":         datasetID,
			"payload":    string(payload),
			"extra":      extra,
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	if err != nil {
		return err
	}
	if _, err := res.Single(ctx); err != nil {
		return errDatasetMissing
	}
	return nil
}

func (c *Neo4jClient) getArtifact(ctx context.Context, datasetID, prop, name string, v interface{}) error {
	query := fmt.Sprintf(`MATCH (d:Dataset {id: $id}) RETURN d.%s AS payload`, prop)
	result, err := c.ExecuteQuery(ctx, query, map[string]interface{}{"id": datasetID})
	if err != nil {
		return errors.PersistenceFailure("Failed to load "+name, err)
	}
	if len(result.Records) == 0 {
		return errors.NotFound("Dataset not found")
	}
	raw, _ := result.Records[0].Get("payload")
	payload, ok := raw.(string)
	if !ok || payload == "" {
		return errors.NotFound("No " + name + " for dataset").WithDetails("dataset_id", datasetID)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return errors.PersistenceFailure("Stored "+name+" is corrupt", err)
	}
	return nil
}

func persistErr(name string, err error) error {
	if errors.IsAPIError(err) {
		return err
	}
	return errors.PersistenceFailure("Failed to persist "+name, err)
}

func datasetParams(ds *models.Dataset) map[string]interface{} {
	return map[string]interface{}{
		"id":           ds.ID,
		"name":         ds.Name,
		"file_name":    ds.FileName,
		"storage_key":  ds.StorageKey,
		"size_bytes":   ds.SizeBytes,
		"content_type": ds.ContentType,
		"created_at":   ds.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func datasetFromProps(props map[string]interface{}) *models.Dataset {
	str := func(key string) string {
		s, _ := props[key].(string)
		return s
	}
	ds := &models.Dataset{
		ID:          str("id"),
		Name:        str("name"),
		FileName:    str("file_name"),
		StorageKey:  str("storage_key"),
		ContentType: str("content_type"),
	}
	if n, ok := props["size_bytes"].(int64); ok {
		ds.SizeBytes = n
	}
	if t, err := time.Parse(time.RFC3339Nano, str("created_at")); err == nil {
		ds.CreatedAt = t
	}
	return ds
}

func columnNames(profile *models.DatasetProfile) []string {
	names := make([]string, len(profile.Columns))
	for i, col := range profile.Columns {
		names[i] = col.Name
	}
	return names
}

func columnParams(profile *models.DatasetProfile) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(profile.Columns))
	for _, col := range profile.Columns {
		out = append(out, map[string]interface{}{
			"name":          col.Name,
			"position":      col.Position,
			"detected_type": string(col.DetectedType),
			"null_count":    col.NullCount,
			"unique_count":  col.UniqueCount,
			"completeness":  col.Completeness,
			"uniqueness":    col.Uniqueness,
		})
	}
	return out
}

func correlationParams(corrs []models.Correlation) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(corrs))
	for _, c := range corrs {
		out = append(out, map[string]interface{}{
			"column_x":  c.ColumnX,
			"column_y":  c.ColumnY,
			"value":     c.Value,
			"strength":  string(c.Strength),
			"direction": string(c.Direction),
		})
	}
	return out
}

func classificationParams(results []models.ColumnClassification) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]interface{}{
			"column_name":   r.ColumnName,
			"semantic_type": string(r.SemanticType),
			"confidence":    r.Confidence,
		})
	}
	return out
}
