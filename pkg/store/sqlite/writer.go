// Package sqlite persists imported raw data files and standards lists to
// SQLite databases
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/filter"
	"github.com/ChrisMcGann/RawKey/pkg/standards"
)

const (
	// Date format for HeaderTable and FileTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Date format for MaintenanceTable
	maintenanceDateFormat = "2006 01 02"

	schemaVersion = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS FileTable (
	FileId INTEGER PRIMARY KEY,
	Name TEXT,
	Path TEXT,
	Mobility INTEGER,
	ImportDate TEXT
);

CREATE TABLE IF NOT EXISTS ScanTable (
	FileId INTEGER REFERENCES FileTable(FileId),
	ScanNumber INTEGER,
	FunctionIndex INTEGER,
	ScanIndex INTEGER,
	MSLevel INTEGER,
	Polarity TEXT,
	Continuum BOOL,
	RetentionTime DOUBLE,
	MzMin DOUBLE,
	MzMax DOUBLE,
	DriftIndex INTEGER,
	BasePeakMz DOUBLE,
	BasePeakIntensity DOUBLE,
	TIC DOUBLE,
	blobMass BLOB,
	blobIntensity BLOB,
	PRIMARY KEY (FileId, ScanNumber)
);

CREATE TABLE IF NOT EXISTS FrameTable (
	FileId INTEGER REFERENCES FileTable(FileId),
	FrameIndex INTEGER,
	FirstScan INTEGER,
	ScanCount INTEGER,
	RetentionTime DOUBLE,
	PRIMARY KEY (FileId, FrameIndex)
);

CREATE TABLE IF NOT EXISTS StandardsTable (
	ListName TEXT,
	Position INTEGER,
	IonFormula TEXT,
	RetentionTime DOUBLE
);

CREATE TABLE IF NOT EXISTS HeaderTable (
	version INTEGER NOT NULL DEFAULT 0,
	CreationDate TEXT,
	LastModifiedDate TEXT,
	Description TEXT
);

CREATE TABLE IF NOT EXISTS MaintenanceTable (
	CreationDate TEXT,
	NoofFilesModified INTEGER,
	Description TEXT
);
`

// Writer handles writing imported raw data files to SQLite database files.
// It satisfies the importer's registry so finished imports are persisted as
// they complete. Writer is safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	db         *sql.DB
	outputPath string
	filter     *filter.Config
	fileStmt   *sql.Stmt
	scanStmt   *sql.Stmt
	frameStmt  *sql.Stmt
	fileID     int64
	written    int
	closed     bool
}

// NewWriter creates a new SQLite writer. Peaks are filtered with fc before
// they are stored; fc may be nil.
func NewWriter(outputPath string, fc *filter.Config) (*Writer, error) {
	db, err := openDB(outputPath)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		filter:     fc,
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %w", core.ErrIO, err)
	}

	if err := db.QueryRow(`SELECT COALESCE(MAX(FileId), 0) + 1 FROM FileTable`).Scan(&w.fileID); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to read next file id: %w", core.ErrIO, err)
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", core.ErrIO, err)
	}
	// One connection keeps concurrent writers from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.fileStmt, err = w.db.Prepare(`
		INSERT INTO FileTable (FileId, Name, Path, Mobility, ImportDate)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare file statement: %w", core.ErrIO, err)
	}

	w.scanStmt, err = w.db.Prepare(`
		INSERT INTO ScanTable (
			FileId, ScanNumber, FunctionIndex, ScanIndex, MSLevel, Polarity,
			Continuum, RetentionTime, MzMin, MzMax, DriftIndex, BasePeakMz,
			BasePeakIntensity, TIC, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare scan statement: %w", core.ErrIO, err)
	}

	w.frameStmt, err = w.db.Prepare(`
		INSERT INTO FrameTable (FileId, FrameIndex, FirstScan, ScanCount, RetentionTime)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare frame statement: %w", core.ErrIO, err)
	}

	return nil
}

// AddRawDataFile writes a sealed raw data file, its scans and frames in one
// transaction.
func (w *Writer) AddRawDataFile(f *core.RawDataFile) error {
	if !f.Sealed() {
		return fmt.Errorf("%w: raw data file %s is not sealed", core.ErrInternalInvariant, f.Name())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("%w: writer for %s is closed", core.ErrIO, w.outputPath)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", core.ErrIO, err)
	}
	if err := w.writeFile(tx, f); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit %s: %w", core.ErrIO, f.Name(), err)
	}

	log.Infow("stored raw data file", "file", f.Name(), "id", w.fileID, "scans", f.ScanCount(), "frames", f.FrameCount())
	w.fileID++
	w.written++
	return nil
}

func (w *Writer) writeFile(tx *sql.Tx, f *core.RawDataFile) error {
	_, err := tx.Stmt(w.fileStmt).Exec(
		w.fileID,
		f.Name(),
		f.Path(),
		int(f.MobilityType()),
		time.Now().Format(headerDateFormat),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert file %s: %w", core.ErrIO, f.Name(), err)
	}

	scanStmt := tx.Stmt(w.scanStmt)
	it := f.Scans()
	for it.Next() {
		if err := w.writeScan(scanStmt, it.Scan()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	frameStmt := tx.Stmt(w.frameStmt)
	for i := 0; i < f.FrameCount(); i++ {
		fr := f.Frame(i)
		_, err := frameStmt.Exec(w.fileID, fr.Index, fr.FirstScan, fr.ScanCount(), float64(fr.RetentionTime))
		if err != nil {
			return fmt.Errorf("%w: failed to insert frame %d: %w", core.ErrIO, fr.Index, err)
		}
	}

	return nil
}

func (w *Writer) writeScan(stmt *sql.Stmt, scan *core.Scan) error {
	s, err := w.filter.Apply(scan)
	if err != nil {
		return fmt.Errorf("failed to filter scan %d: %w", scan.ScanNumber(), err)
	}

	h := s.Header()

	// Optional columns
	var mzMin, mzMax, drift interface{}
	if r, ok := s.MZRange(); ok {
		mzMin, mzMax = r.Min, r.Max
	}
	if d, ok := s.DriftIndex(); ok {
		drift = int(d)
	}
	var bpMZ, bpIntensity interface{}
	if bp, ok := s.BasePeak(); ok {
		bpMZ, bpIntensity = bp.MZ, bp.Intensity
	}

	_, err = stmt.Exec(
		w.fileID,                 // FileId
		h.ScanNumber,             // ScanNumber
		h.FunctionIndex,          // FunctionIndex
		h.ScanIndex,              // ScanIndex
		h.MSLevel,                // MSLevel
		h.Polarity.String(),      // Polarity
		h.Continuum,              // Continuum
		float64(h.RetentionTime), // RetentionTime
		mzMin,                    // MzMin
		mzMax,                    // MzMax
		drift,                    // DriftIndex
		bpMZ,                     // BasePeakMz
		bpIntensity,              // BasePeakIntensity
		s.TotalIonCurrent(),      // TIC
		encodeFloat64(s.MZValues()),
		encodeFloat64(s.IntensityValues()),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert scan %d: %w", core.ErrIO, h.ScanNumber, err)
	}
	return nil
}

// WriteStandards stores a standards list under name, replacing any list of
// the same name.
func (w *Writer) WriteStandards(name string, list *standards.List) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", core.ErrIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM StandardsTable WHERE ListName = ?`, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: failed to clear standards %s: %w", core.ErrIO, name, err)
	}
	for i, it := range list.Items() {
		_, err := tx.Exec(`
			INSERT INTO StandardsTable (ListName, Position, IonFormula, RetentionTime)
			VALUES (?, ?, ?, ?)
		`, name, i, it.IonFormula, it.RetentionTimeSeconds)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: failed to insert standard %d: %w", core.ErrIO, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit standards %s: %w", core.ErrIO, name, err)
	}
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeFloat64 is the inverse of encodeFloat64
func decodeFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("%w: blob length %d is not a multiple of 8", core.ErrIO, len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

// Finalize writes the header and maintenance tables and closes the database
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	now := time.Now()

	// Write HeaderTable once; later sessions only touch LastModifiedDate
	var headers int
	err := w.db.QueryRow(`SELECT COUNT(*) FROM HeaderTable`).Scan(&headers)
	if err == nil && headers == 0 {
		_, err = w.db.Exec(`
			INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
			VALUES (?, ?, ?, ?)
		`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), "rawkey import")
	} else if err == nil {
		_, err = w.db.Exec(`UPDATE HeaderTable SET LastModifiedDate = ?`, now.Format(headerDateFormat))
	}
	if err != nil {
		w.db.Close()
		return fmt.Errorf("%w: failed to insert header: %w", core.ErrIO, err)
	}

	// Write MaintenanceTable
	_, err = w.db.Exec(`
		INSERT INTO MaintenanceTable (CreationDate, NoofFilesModified, Description)
		VALUES (?, ?, ?)
	`, now.Format(maintenanceDateFormat), w.written, "")
	if err != nil {
		w.db.Close()
		return fmt.Errorf("%w: failed to insert maintenance: %w", core.ErrIO, err)
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.fileStmt, w.scanStmt, w.frameStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("%w: failed to close database: %w", core.ErrIO, err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
