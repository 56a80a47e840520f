package core

import (
	"fmt"
	"sort"
)

// Frame groups the drift sub-scans acquired at one retention time.
type Frame struct {
	Index         int
	FunctionIndex uint16
	RetentionTime float32
	FirstScan     uint32
	Scans         []*Scan
}

// ScanCount returns the number of drift sub-scans in the frame.
func (f *Frame) ScanCount() int { return len(f.Scans) }

// RawDataFile is the imported representation of one acquisition. It is
// filled by a single importer and becomes read-only once sealed.
type RawDataFile struct {
	name         string
	path         string
	mobilityType MobilityType
	scans        []*Scan
	frames       []*Frame
	mzRange      Range
	hasMZRange   bool
	sealed       bool
}

// NewRawDataFile creates an empty raw data file handle.
func NewRawDataFile(name, path string) *RawDataFile {
	return &RawDataFile{name: name, path: path}
}

func (f *RawDataFile) Name() string { return f.name }
func (f *RawDataFile) Path() string { return f.path }

// SetMobilityType marks the file as an ion-mobility acquisition.
func (f *RawDataFile) SetMobilityType(mt MobilityType) error {
	if f.sealed {
		return f.sealedError("mobility type")
	}
	f.mobilityType = mt
	return nil
}

// MobilityType returns MobilityNone for files without a drift dimension.
func (f *RawDataFile) MobilityType() MobilityType { return f.mobilityType }

// IsMobility reports whether the file carries an ion-mobility dimension.
func (f *RawDataFile) IsMobility() bool { return f.mobilityType != MobilityNone }

// AddScan appends a scan. Scan numbers must be dense and 0-based.
func (f *RawDataFile) AddScan(s *Scan) error {
	if f.sealed {
		return f.sealedError("scan")
	}
	if int(s.ScanNumber()) != len(f.scans) {
		return &ValidationError{
			Field:   "RawDataFile " + f.name,
			Message: fmt.Sprintf("scan number %d added at position %d", s.ScanNumber(), len(f.scans)),
		}
	}

	if r, ok := s.MZRange(); ok {
		if f.hasMZRange {
			f.mzRange = f.mzRange.Span(r)
		} else {
			f.mzRange, f.hasMZRange = r, true
		}
	}
	f.scans = append(f.scans, s)
	return nil
}

// AddFrame appends scans as one frame. The scans must share a retention time,
// carry drift indices 0..n-1 and have consecutive scan numbers that are the
// next ones in the file.
func (f *RawDataFile) AddFrame(scans []*Scan) error {
	if f.sealed {
		return f.sealedError("frame")
	}
	if len(scans) == 0 {
		return &ValidationError{Field: "RawDataFile " + f.name, Message: "empty frame"}
	}

	rt := scans[0].RetentionTime()
	for i, s := range scans {
		d, ok := s.DriftIndex()
		if !ok || int(d) != i || s.RetentionTime() != rt {
			return &ValidationError{
				Field:   "RawDataFile " + f.name,
				Message: fmt.Sprintf("frame scan %d has drift %d (ok=%t) and rt %.4f", i, d, ok, s.RetentionTime()),
			}
		}
		if int(s.ScanNumber()) != len(f.scans)+i {
			return &ValidationError{
				Field:   "RawDataFile " + f.name,
				Message: fmt.Sprintf("frame scan %d has scan number %d, want %d", i, s.ScanNumber(), len(f.scans)+i),
			}
		}
	}
	for _, s := range scans {
		if err := f.AddScan(s); err != nil {
			return err
		}
	}

	f.frames = append(f.frames, &Frame{
		Index:         len(f.frames),
		FunctionIndex: scans[0].FunctionIndex(),
		RetentionTime: rt,
		FirstScan:     scans[0].ScanNumber(),
		Scans:         scans,
	})
	return nil
}

// Seal makes the file read-only.
func (f *RawDataFile) Seal() { f.sealed = true }

// Sealed reports whether the import that filled the file completed.
func (f *RawDataFile) Sealed() bool { return f.sealed }

func (f *RawDataFile) sealedError(what string) error {
	return fmt.Errorf("%w: cannot add %s to sealed file %s", ErrInternalInvariant, what, f.name)
}

// ScanCount returns the number of scans.
func (f *RawDataFile) ScanCount() int { return len(f.scans) }

// Scan returns the scan with project-global number i.
func (f *RawDataFile) Scan(i int) *Scan { return f.scans[i] }

// FrameCount returns the number of ion-mobility frames.
func (f *RawDataFile) FrameCount() int { return len(f.frames) }

// Frame returns the i-th frame in retention time order.
func (f *RawDataFile) Frame(i int) *Frame { return f.frames[i] }

// MZRange returns the span of all scan m/z ranges.
func (f *RawDataFile) MZRange() (Range, bool) { return f.mzRange, f.hasMZRange }

// PolaritySet returns the distinct polarities of all scans in ascending order.
func (f *RawDataFile) PolaritySet() []Polarity {
	seen := make(map[Polarity]bool)
	for _, s := range f.scans {
		seen[s.Polarity()] = true
	}

	set := make([]Polarity, 0, len(seen))
	for p := range seen {
		set = append(set, p)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Scans returns an iterator over the scans in scan number order.
func (f *RawDataFile) Scans() *ScanIterator {
	return &ScanIterator{scans: f.scans, pos: -1}
}

// ScanIterator provides streaming access to the scans of a file.
type ScanIterator struct {
	scans []*Scan
	pos   int
}

// Next advances to the next scan. Returns false when no more scans.
func (it *ScanIterator) Next() bool {
	if it.pos+1 >= len(it.scans) {
		it.pos = len(it.scans)
		return false
	}
	it.pos++
	return true
}

// Scan returns the current scan
func (it *ScanIterator) Scan() *Scan {
	if it.pos < 0 || it.pos >= len(it.scans) {
		return nil
	}
	return it.scans[it.pos]
}

// Err is always nil for in-memory files; it mirrors the stream readers.
func (it *ScanIterator) Err() error { return nil }
