// Package masslynx defines the minimal surface of the Waters MassLynx raw
// data SDK that the importer depends on, together with a driver registry so
// that concrete SDK bindings can be plugged in.
package masslynx

import (
	"fmt"

	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// FunctionType is the acquisition mode of a function.
type FunctionType int

const (
	FunctionOther FunctionType = iota
	FunctionMS                 // Full scan MS
	FunctionMS2                // Fragmentation MS/MS
	FunctionTOFM               // Time-of-flight single stage
	FunctionSIR                // Single ion recording
	FunctionDLY                // Delay
	FunctionCAT                // Concatenated
	FunctionOFF                // Offset
	FunctionPAR                // Parent scan
	FunctionDAU                // Daughter scan
	FunctionNL                 // Neutral loss
	FunctionNG                 // Neutral gain
	FunctionMRM                // Multiple reaction monitoring
	FunctionQ1F                // Q1 full scan
)

var functionTypeNames = map[FunctionType]string{
	FunctionOther: "OTHER",
	FunctionMS:    "MS",
	FunctionMS2:   "MS2",
	FunctionTOFM:  "TOFM",
	FunctionSIR:   "SIR",
	FunctionDLY:   "DLY",
	FunctionCAT:   "CAT",
	FunctionOFF:   "OFF",
	FunctionPAR:   "PAR",
	FunctionDAU:   "DAU",
	FunctionNL:    "NL",
	FunctionNG:    "NG",
	FunctionMRM:   "MRM",
	FunctionQ1F:   "Q1F",
}

func (t FunctionType) String() string {
	if name, ok := functionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FunctionType(%d)", int(t))
}

// MSLevel maps the function type to an MS level. Only MS and TOFM (level 1)
// and MS2 (level 2) are known; everything else is 0.
func (t FunctionType) MSLevel() uint8 {
	switch t {
	case FunctionMS, FunctionTOFM:
		return 1
	case FunctionMS2:
		return 2
	default:
		return 0
	}
}

// IonMode is the ionisation source and polarity of a function.
type IonMode int

const (
	IonModeUninitialised IonMode = iota
	IonModeEIPos
	IonModeEINeg
	IonModeCIPos
	IonModeCINeg
	IonModeFBPos
	IonModeFBNeg
	IonModeTSPos
	IonModeTSNeg
	IonModeESPos
	IonModeESNeg
	IonModeAIPos
	IonModeAINeg
	IonModeLDPos
	IonModeLDNeg
)

// Polarity maps the ion mode to a scan polarity.
func (m IonMode) Polarity() core.Polarity {
	switch m {
	case IonModeEIPos, IonModeCIPos, IonModeFBPos, IonModeTSPos, IonModeESPos, IonModeAIPos, IonModeLDPos:
		return core.PolarityPositive
	case IonModeEINeg, IonModeCINeg, IonModeFBNeg, IonModeTSNeg, IonModeESNeg, IonModeAINeg, IonModeLDNeg:
		return core.PolarityNegative
	default:
		return core.PolarityUnknown
	}
}

// MassRange is the acquisition mass range of a function as reported by the
// SDK.
type MassRange struct {
	Start float32
	End   float32
}

// Range converts the vendor range into a closed float64 interval.
func (r MassRange) Range() core.Range {
	return core.NewRange(float64(r.Start), float64(r.End))
}

// RawReader is the subset of the MassLynx info and scan readers used by the
// importer. A RawReader is owned by a single import and is not safe for
// concurrent use.
type RawReader interface {
	FunctionCount() (int, error)
	ScansInFunction(function int) (int, error)
	FunctionType(function int) (FunctionType, error)
	AcquisitionMassRange(function int) (MassRange, error)
	IonMode(function int) (IonMode, error)
	IsContinuum(function int) (bool, error)
	// RetentionTime returns the retention time in minutes.
	RetentionTime(function, scan int) (float32, error)
	// DriftScanCount returns false if the function has no drift dimension.
	DriftScanCount(function int) (uint16, bool)
	ReadScan(function, scan int) (mz, intensity []float32, err error)
	Close() error
}

// DriftScanReader is implemented by readers of ion-mobility acquisitions.
type DriftScanReader interface {
	ReadDriftScan(function, scan, drift int) (mz, intensity []float32, err error)
}

// Error is a failure reported by the vendor SDK. It matches core.ErrSDK.
type Error struct {
	Op       string
	Function int
	Scan     int
	Message  string
}

// NewError creates an SDK error. Pass -1 for function or scan when the
// operation is not specific to one.
func NewError(op string, function, scan int, format string, args ...interface{}) *Error {
	return &Error{Op: op, Function: function, Scan: scan, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Function >= 0 && e.Scan >= 0:
		return fmt.Sprintf("masslynx %s (function %d, scan %d): %s", e.Op, e.Function, e.Scan, e.Message)
	case e.Function >= 0:
		return fmt.Sprintf("masslynx %s (function %d): %s", e.Op, e.Function, e.Message)
	default:
		return fmt.Sprintf("masslynx %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Is(target error) bool {
	return target == core.ErrSDK
}
