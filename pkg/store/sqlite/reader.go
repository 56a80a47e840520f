package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/standards"
)

// DefaultCacheSize is the number of decoded scans a Reader keeps.
const DefaultCacheSize = 1024

// FileInfo describes a stored raw data file.
type FileInfo struct {
	ID         int64
	Name       string
	Path       string
	Mobility   core.MobilityType
	ImportDate string
}

// Summary aggregates the scans of one stored file.
type Summary struct {
	File       FileInfo
	ScanCount  int
	FrameCount int
	MZRange    core.Range
	HasMZRange bool
	Polarities []core.Polarity
	MSLevels   map[uint8]int
}

type scanKey struct {
	file int64
	scan uint32
}

// Reader reads back databases produced by Writer. Decoded scans are kept in
// an LRU cache.
type Reader struct {
	db    *sql.DB
	cache *lru.Cache[scanKey, *core.Scan]
}

// Open opens an existing database for reading.
func Open(path string, cacheSize int) (*Reader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}

	cache, err := lru.New[scanKey, *core.Scan](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db, cache: cache}, nil
}

// Close closes the database.
func (r *Reader) Close() error {
	r.cache.Purge()
	return r.db.Close()
}

// Files lists stored files in import order.
func (r *Reader) Files() ([]FileInfo, error) {
	rows, err := r.db.Query(`SELECT FileId, Name, Path, Mobility, ImportDate FROM FileTable ORDER BY FileId`)
	if err != nil {
		return nil, fmt.Errorf("%w: query files: %w", core.ErrIO, err)
	}
	defer rows.Close()

	var files []FileInfo
	for rows.Next() {
		var fi FileInfo
		var mobility int
		if err := rows.Scan(&fi.ID, &fi.Name, &fi.Path, &mobility, &fi.ImportDate); err != nil {
			return nil, fmt.Errorf("%w: scan file row: %w", core.ErrIO, err)
		}
		fi.Mobility = core.MobilityType(mobility)
		files = append(files, fi)
	}
	return files, rows.Err()
}

// FileByName returns the most recently imported file called name.
func (r *Reader) FileByName(name string) (FileInfo, error) {
	var fi FileInfo
	var mobility int
	err := r.db.QueryRow(`
		SELECT FileId, Name, Path, Mobility, ImportDate FROM FileTable
		WHERE Name = ? ORDER BY FileId DESC LIMIT 1
	`, name).Scan(&fi.ID, &fi.Name, &fi.Path, &mobility, &fi.ImportDate)
	if errors.Is(err, sql.ErrNoRows) {
		return fi, fmt.Errorf("%w: no stored file named %q", core.ErrInvalidPath, name)
	}
	if err != nil {
		return fi, fmt.Errorf("%w: query file %q: %w", core.ErrIO, name, err)
	}
	fi.Mobility = core.MobilityType(mobility)
	return fi, nil
}

// ScanCount returns the number of scans stored for a file.
func (r *Reader) ScanCount(fileID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM ScanTable WHERE FileId = ?`, fileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count scans: %w", core.ErrIO, err)
	}
	return n, nil
}

// Scan returns scan number n of a file.
func (r *Reader) Scan(fileID int64, n uint32) (*core.Scan, error) {
	key := scanKey{file: fileID, scan: n}
	if s, ok := r.cache.Get(key); ok {
		return s, nil
	}

	var (
		h               core.ScanHeader
		polarity        string
		rt              float64
		mzMin, mzMax    sql.NullFloat64
		drift           sql.NullInt64
		mzBlob, intBlob []byte
	)
	err := r.db.QueryRow(`
		SELECT ScanNumber, FunctionIndex, ScanIndex, MSLevel, Polarity, Continuum,
			RetentionTime, MzMin, MzMax, DriftIndex, blobMass, blobIntensity
		FROM ScanTable WHERE FileId = ? AND ScanNumber = ?
	`, fileID, n).Scan(&h.ScanNumber, &h.FunctionIndex, &h.ScanIndex, &h.MSLevel, &polarity,
		&h.Continuum, &rt, &mzMin, &mzMax, &drift, &mzBlob, &intBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %d has no scan %d", core.ErrInvalidPath, fileID, n)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query scan %d: %w", core.ErrIO, n, err)
	}

	h.Polarity = core.ParsePolarity(polarity)
	h.RetentionTime = float32(rt)
	if mzMin.Valid && mzMax.Valid {
		h.MZRange = core.NewRange(mzMin.Float64, mzMax.Float64)
		h.HasMZRange = true
	}
	h.DriftIndex = core.NoDriftIndex
	if drift.Valid {
		h.DriftIndex = int(drift.Int64)
	}

	mz, err := decodeFloat64(mzBlob)
	if err != nil {
		return nil, err
	}
	intensity, err := decodeFloat64(intBlob)
	if err != nil {
		return nil, err
	}

	s, err := core.NewScan(h, mz, intensity)
	if err != nil {
		return nil, fmt.Errorf("stored scan %d: %w", n, err)
	}
	r.cache.Add(key, s)
	return s, nil
}

// FrameCount returns the number of ion-mobility frames stored for a file.
func (r *Reader) FrameCount(fileID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM FrameTable WHERE FileId = ?`, fileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count frames: %w", core.ErrIO, err)
	}
	return n, nil
}

// Frame returns frame i of a file with all its drift scans.
func (r *Reader) Frame(fileID int64, i int) (*core.Frame, error) {
	var (
		first uint32
		count int
		rt    float64
	)
	err := r.db.QueryRow(`
		SELECT FirstScan, ScanCount, RetentionTime FROM FrameTable
		WHERE FileId = ? AND FrameIndex = ?
	`, fileID, i).Scan(&first, &count, &rt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %d has no frame %d", core.ErrInvalidPath, fileID, i)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query frame %d: %w", core.ErrIO, i, err)
	}

	frame := &core.Frame{Index: i, RetentionTime: float32(rt), FirstScan: first}
	for n := 0; n < count; n++ {
		s, err := r.Scan(fileID, first+uint32(n))
		if err != nil {
			return nil, err
		}
		frame.Scans = append(frame.Scans, s)
	}
	if len(frame.Scans) > 0 {
		frame.FunctionIndex = frame.Scans[0].FunctionIndex()
	}
	return frame, nil
}

// Summarize aggregates scan metadata of a file without decoding peaks.
func (r *Reader) Summarize(fi FileInfo) (*Summary, error) {
	sum := &Summary{File: fi, MSLevels: make(map[uint8]int)}

	rows, err := r.db.Query(`
		SELECT MSLevel, Polarity, COUNT(*), MIN(MzMin), MAX(MzMax) FROM ScanTable
		WHERE FileId = ? GROUP BY MSLevel, Polarity
	`, fi.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: summarize file %d: %w", core.ErrIO, fi.ID, err)
	}
	defer rows.Close()

	polarities := make(map[core.Polarity]bool)
	for rows.Next() {
		var (
			level        uint8
			polarity     string
			count        int
			mzMin, mzMax sql.NullFloat64
		)
		if err := rows.Scan(&level, &polarity, &count, &mzMin, &mzMax); err != nil {
			return nil, fmt.Errorf("%w: summarize file %d: %w", core.ErrIO, fi.ID, err)
		}
		sum.ScanCount += count
		sum.MSLevels[level] += count
		polarities[core.ParsePolarity(polarity)] = true

		if mzMin.Valid && mzMax.Valid {
			rg := core.NewRange(mzMin.Float64, mzMax.Float64)
			if sum.HasMZRange {
				sum.MZRange = sum.MZRange.Span(rg)
			} else {
				sum.MZRange, sum.HasMZRange = rg, true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for p := range polarities {
		sum.Polarities = append(sum.Polarities, p)
	}
	sort.Slice(sum.Polarities, func(i, j int) bool { return sum.Polarities[i] < sum.Polarities[j] })

	if sum.FrameCount, err = r.FrameCount(fi.ID); err != nil {
		return nil, err
	}
	return sum, nil
}

// Standards returns the stored standards list called name, in stored order.
func (r *Reader) Standards(name string) (*standards.List, error) {
	rows, err := r.db.Query(`
		SELECT IonFormula, RetentionTime FROM StandardsTable
		WHERE ListName = ? ORDER BY Position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: query standards %q: %w", core.ErrIO, name, err)
	}
	defer rows.Close()

	var items []standards.Item
	for rows.Next() {
		var it standards.Item
		if err := rows.Scan(&it.IonFormula, &it.RetentionTimeSeconds); err != nil {
			return nil, fmt.Errorf("%w: scan standards row: %w", core.ErrIO, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return standards.NewList(items), nil
}
