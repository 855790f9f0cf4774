// Package artifacts persists per-run analysis outputs under a
// deterministic <root>/<symbol>/<YYYYMMDD>/<name>.json layout. Every file
// carries an envelope with the save timestamp and the analysis period so a
// run directory is self-describing.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

// Service implements interfaces.ArtifactStore on the local filesystem.
type Service struct {
	root   string
	logger arbor.ILogger
}

// NewService creates the artifact store rooted at cfg-provided directory.
func NewService(root string, logger arbor.ILogger) *Service {
	return &Service{root: root, logger: logger}
}

// Dir returns the run directory path for one (symbol, date).
func (s *Service) Dir(symbol, date string) string {
	return filepath.Join(s.root, symbol, date)
}

// SaveToolResult persists an acquisition group's structured output. A
// string payload that parses as JSON lands in the envelope's data field;
// one that does not lands in text.
func (s *Service) SaveToolResult(symbol, date, name, analysisPeriod string, data interface{}) error {
	envelope := models.ToolEnvelope{
		Tool:           name,
		Timestamp:      common.Timestamp(time.Now()),
		AnalysisPeriod: analysisPeriod,
	}

	switch v := data.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
			envelope.Data = json.RawMessage(trimmed)
		} else {
			envelope.Text = v
		}
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode tool result %s: %w", name, err)
		}
		envelope.Data = raw
	}

	return s.write(symbol, date, name, envelope)
}

// SaveReport persists an analyst report under its report type label.
func (s *Service) SaveReport(symbol, date, name, reportType, analysisPeriod string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", name, err)
	}
	envelope := models.ReportEnvelope{
		ReportType:     reportType,
		Timestamp:      common.Timestamp(time.Now()),
		AnalysisPeriod: analysisPeriod,
		Data:           raw,
	}
	return s.write(symbol, date, name, envelope)
}

// LoadToolResult reads a previously saved tool envelope.
func (s *Service) LoadToolResult(symbol, date, name string) (*models.ToolEnvelope, error) {
	raw, err := s.read(symbol, date, name)
	if err != nil {
		return nil, err
	}
	var envelope models.ToolEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", name, err)
	}
	return &envelope, nil
}

// LoadReport reads a previously saved report envelope.
func (s *Service) LoadReport(symbol, date, name string) (*models.ReportEnvelope, error) {
	raw, err := s.read(symbol, date, name)
	if err != nil {
		return nil, err
	}
	var envelope models.ReportEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", name, err)
	}
	return &envelope, nil
}

// List returns the artifact names present for one run, sorted.
func (s *Service) List(symbol, date string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(symbol, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// write marshals the envelope and lands it via temp-file rename so readers
// never observe a partial artifact.
func (s *Service) write(symbol, date, name string, envelope interface{}) error {
	dir := s.Dir(symbol, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	payload, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", name, err)
	}

	target := filepath.Join(dir, name+".json")
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize artifact %s: %w", name, err)
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Str("date", date).
		Str("artifact", name).
		Msg("Artifact saved")
	return nil
}

func (s *Service) read(symbol, date, name string) ([]byte, error) {
	path := filepath.Join(s.Dir(symbol, date), name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.Errorf(models.ErrNotFound, "artifacts.read", "artifact %s not found for %s/%s", name, symbol, date)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return raw, nil
}
