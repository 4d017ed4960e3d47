package db

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/voxedit/internal/region"
	"github.com/banshee-data/voxedit/internal/voxel"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("region run not found")

// RegionRun is one persisted segmentation run.
type RegionRun struct {
	RunID       string     `json:"run_id"`
	CreatedAtNs int64      `json:"created_at_ns"`
	EditModel   string     `json:"edit_model,omitempty"`
	ObjectModel string     `json:"object_model,omitempty"`
	Dims        voxel.Dims `json:"dims"`

	ActiveNodes int     `json:"active_nodes"`
	Edges       int     `json:"edges"`
	EditSeeds   int     `json:"edit_seeds"`
	ObjectSeeds int     `json:"object_seeds"`
	EditNodes   int     `json:"edit_nodes"`
	ObjectNodes int     `json:"object_nodes"`
	Flow        float64 `json:"flow"`
	Fallback    bool    `json:"fallback"`
	Degenerate  bool    `json:"degenerate"`
	Conflicts   int     `json:"conflicts"`
	Sanitized   int     `json:"sanitized"`
	DurationMs  float64 `json:"duration_ms"`

	KeepComponents int    `json:"keep_components"`
	RestoredCells  int    `json:"restored_cells"`
	Notes          string `json:"notes,omitempty"`

	ConfigJSON json.RawMessage `json:"config_json"`
	// EditCoords is only populated by GetRun.
	EditCoords []voxel.Coord `json:"-"`
}

// NewRegionRun captures a result and the configuration that produced it.
func NewRegionRun(res *region.Result, cfg region.Config) (*RegionRun, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal region config: %w", err)
	}
	s := res.Stats
	return &RegionRun{
		Dims:           res.Selection.Dims,
		ActiveNodes:    s.ActiveNodes,
		Edges:          s.Edges,
		EditSeeds:      s.EditSeeds,
		ObjectSeeds:    s.ObjectSeeds,
		EditNodes:      s.EditNodes,
		ObjectNodes:    s.ObjectNodes,
		Flow:           s.Flow,
		Fallback:       s.Fallback,
		Degenerate:     s.Degenerate,
		Conflicts:      s.Conflicts,
		Sanitized:      s.Sanitized,
		DurationMs:     float64(s.TotalDuration) / float64(time.Millisecond),
		KeepComponents: cfg.KeepComponents,
		ConfigJSON:     cfgJSON,
		EditCoords:     res.EditCoords(),
	}, nil
}

// Config decodes the stored region configuration.
func (r *RegionRun) Config() (region.Config, error) {
	var cfg region.Config
	if err := json.Unmarshal(r.ConfigJSON, &cfg); err != nil {
		return region.Config{}, fmt.Errorf("decode run config: %w", err)
	}
	return cfg, nil
}

// RegionRunStore provides persistence for segmentation runs.
type RegionRunStore struct {
	db *sql.DB
}

// NewRegionRunStore creates a new RegionRunStore.
func NewRegionRunStore(db *sql.DB) *RegionRunStore {
	return &RegionRunStore{db: db}
}

// InsertRun stores run and its edit coordinates.
// If run.RunID is empty, a new UUID is generated.
func (s *RegionRunStore) InsertRun(run *RegionRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}
	blob, err := encodeCoords(run.EditCoords)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	query := `
		INSERT INTO region_runs (
			run_id, created_at_ns, edit_model, object_model,
			dim_x, dim_y, dim_z,
			active_nodes, edges, edit_seeds, object_seeds, edit_nodes, object_nodes,
			flow, fallback, degenerate, conflicts, sanitized, duration_ms,
			config_json, edit_coords, keep_components, restored_cells, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		run.RunID,
		run.CreatedAtNs,
		nullString(run.EditModel),
		nullString(run.ObjectModel),
		run.Dims.X, run.Dims.Y, run.Dims.Z,
		run.ActiveNodes,
		run.Edges,
		run.EditSeeds,
		run.ObjectSeeds,
		run.EditNodes,
		run.ObjectNodes,
		run.Flow,
		run.Fallback,
		run.Degenerate,
		run.Conflicts,
		run.Sanitized,
		run.DurationMs,
		string(run.ConfigJSON),
		blob,
		run.KeepComponents,
		run.RestoredCells,
		nullString(run.Notes),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, created_at_ns, edit_model, object_model,
	dim_x, dim_y, dim_z,
	active_nodes, edges, edit_seeds, object_seeds, edit_nodes, object_nodes,
	flow, fallback, degenerate, conflicts, sanitized, duration_ms,
	config_json, keep_components, restored_cells, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, extra ...any) (*RegionRun, error) {
	var run RegionRun
	var editModel, objectModel, notes sql.NullString
	var configJSON string

	dest := []any{
		&run.RunID, &run.CreatedAtNs, &editModel, &objectModel,
		&run.Dims.X, &run.Dims.Y, &run.Dims.Z,
		&run.ActiveNodes, &run.Edges, &run.EditSeeds, &run.ObjectSeeds, &run.EditNodes, &run.ObjectNodes,
		&run.Flow, &run.Fallback, &run.Degenerate, &run.Conflicts, &run.Sanitized, &run.DurationMs,
		&configJSON, &run.KeepComponents, &run.RestoredCells, &notes,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if editModel.Valid {
		run.EditModel = editModel.String
	}
	if objectModel.Valid {
		run.ObjectModel = objectModel.String
	}
	if notes.Valid {
		run.Notes = notes.String
	}
	run.ConfigJSON = json.RawMessage(configJSON)
	return &run, nil
}

// GetRun retrieves a run, including its edit coordinates, by ID.
func (s *RegionRunStore) GetRun(runID string) (*RegionRun, error) {
	var blob []byte
	row := s.db.QueryRow(`SELECT `+runColumns+`, edit_coords FROM region_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row, &blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run.EditCoords, err = decodeCoords(blob); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without edit coordinates.
// limit <= 0 returns every run.
func (s *RegionRunStore) ListRuns(limit int) ([]*RegionRun, error) {
	query := `SELECT ` + runColumns + ` FROM region_runs ORDER BY created_at_ns DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RegionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run by ID.
func (s *RegionRunStore) DeleteRun(runID string) error {
	res, err := s.db.Exec(`DELETE FROM region_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// LoadSelection rebuilds the selection grid of a stored run with the
// sentinels it was produced with, without re-solving.
func (s *RegionRunStore) LoadSelection(runID string) (*voxel.ScalarGrid, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	cfg, err := run.Config()
	if err != nil {
		return nil, err
	}
	return region.SelectionFromCoords(run.Dims, run.EditCoords, cfg)
}

// encodeCoords gob-encodes and gzip-compresses coordinates. An empty
// region is stored as NULL.
func encodeCoords(coords []voxel.Coord) ([]byte, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(coords); err != nil {
		gz.Close()
		return nil, fmt.Errorf("encode coords: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress coords: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeCoords(blob []byte) ([]voxel.Coord, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress coords: %w", err)
	}
	defer gz.Close()
	var coords []voxel.Coord
	if err := gob.NewDecoder(gz).Decode(&coords); err != nil {
		return nil, fmt.Errorf("decode coords: %w", err)
	}
	return coords, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
