// Package artifact persists and reloads the per-site artifact pair: the wide
// CSV tables and the metadata document. The pair is owned jointly by one
// logical dataset and is always written together, atomically, so no failure
// can leave the two halves mutually inconsistent.
package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/airshed/airseries/internal/fusion"
	"github.com/airshed/airseries/internal/series"
)

// Metadata is the per-dataset metadata document.
type Metadata struct {
	SiteName    string                          `json:"site_name"`
	SiteID      string                          `json:"site_id"`
	CountyCode  string                          `json:"county_code"`
	StateCode   string                          `json:"state_code"`
	Params      []string                        `json:"params"`
	Details     map[string]series.ChannelDetail `json:"details"`
	RawFile     string                          `json:"raw_file"`
	CleanedFile string                          `json:"cleaned_file"`

	FusionSource *fusion.Source `json:"fusion_source,omitempty"`
}

// Coordinate scans the per-channel details for the first scalar
// latitude/longitude pair. The reference coordinate for the nearest-source
// search lives in the channel attributes rather than on the site record.
func (m *Metadata) Coordinate() (lat, lon float64, ok bool) {
	for _, name := range m.Params {
		detail := m.Details[name]
		if detail == nil {
			continue
		}
		la, laOK := detail["latitude"].(float64)
		lo, loOK := detail["longitude"].(float64)
		if laOK && loOK {
			return la, lo, true
		}
	}
	return 0, 0, false
}

// Paths names the three artifact files of one dataset.
type Paths struct {
	Raw     string
	Cleaned string
	Meta    string
}

// Store writes datasets under a base directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore creates the base directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: logger.With("component", "artifact")}, nil
}

var unsafeRunes = regexp.MustCompile(`[^\w\-]`)

// SanitizeName makes a site name safe for use in a filename.
func SanitizeName(name string) string {
	return unsafeRunes.ReplaceAllString(name, "_")
}

// Paths derives the artifact file names for a site.
func (s *Store) Paths(siteName, siteID string) Paths {
	base := SanitizeName(fmt.Sprintf("%s_%s", siteName, siteID))
	return Paths{
		Raw:     filepath.Join(s.dir, base+"_raw.csv"),
		Cleaned: filepath.Join(s.dir, base+"_cleaned.csv"),
		Meta:    filepath.Join(s.dir, base+"_metadata.json"),
	}
}

// SaveDataset writes the raw table, cleaned table, and metadata document.
// Each file is written with write-then-rename so an interrupted run never
// leaves a truncated artifact behind.
func (s *Store) SaveDataset(paths Paths, raw, cleaned *series.Table, meta *Metadata) error {
	if err := s.writeTable(paths.Raw, raw); err != nil {
		return fmt.Errorf("write raw table: %w", err)
	}
	if err := s.writeTable(paths.Cleaned, cleaned); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}
	if err := s.writeMetadata(paths.Meta, meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	s.log.Debug("artifact pair written",
		"raw", paths.Raw, "cleaned", paths.Cleaned, "meta", paths.Meta)
	return nil
}

// SavePair rewrites an existing table/metadata pair in place, atomically.
// This is the fusion entry point's update-in-place contract.
func SavePair(csvPath, jsonPath string, t *series.Table, meta *Metadata) error {
	if err := writeTableAtomic(csvPath, t); err != nil {
		return fmt.Errorf("rewrite table: %w", err)
	}
	if err := writeMetadataAtomic(jsonPath, meta); err != nil {
		return fmt.Errorf("rewrite metadata: %w", err)
	}
	return nil
}

// LoadPair reads a previously produced table/metadata pair.
func LoadPair(csvPath, jsonPath string) (*series.Table, *Metadata, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	table, err := series.ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode metadata: %w", err)
	}

	return table, &meta, nil
}

func (s *Store) writeTable(path string, t *series.Table) error {
	return writeTableAtomic(path, t)
}

func (s *Store) writeMetadata(path string, meta *Metadata) error {
	return writeMetadataAtomic(path, meta)
}

func writeTableAtomic(path string, t *series.Table) error {
	return writeAtomic(path, func(f *os.File) error {
		return t.WriteCSV(f)
	})
}

func writeMetadataAtomic(path string, meta *Metadata) error {
	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "    ")
		return enc.Encode(meta)
	})
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path on success.
func writeAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
