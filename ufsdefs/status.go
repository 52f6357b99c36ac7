package ufsdefs

// StatusCode is the process-wide status word's value space (spec.md §6/§7).
// NoError is always zero; every other code is strictly negative so that an
// operation returning an ID can signal failure on the very same return
// channel simply by returning the code itself.
type StatusCode int64

const (
	NoError StatusCode = 0

	// DoesNotExist covers both "no such path" (Image.Open) and "no such
	// live entity" (engine lookups). spec.md's end-to-end scenario 3 names
	// a separate "IMAGE_DOES_NOT_EXIST"; the source's status enumerations
	// overlap by name but not by code (spec.md §7), so this port unifies
	// them under one DoesNotExist code.
	DoesNotExist StatusCode = -1

	ImageIsCorrupted StatusCode = -2
	VersionMismatch  StatusCode = -3
	BadCall          StatusCode = -4
	AlreadyExists    StatusCode = -5
	OutOfMemory      StatusCode = -6

	CantCreateFile StatusCode = -8

	// UnknownError and ImageTooSmall are distinct numeric codes here.
	// spec.md §9 Open Question (a) notes the source defines
	// UFS_UNKNOWN_ERROR and UFS_IMAGE_TOO_SMALL with the same numeric
	// value; this port assigns each its own code.
	UnknownError  StatusCode = -9
	ImageTooSmall StatusCode = -10

	ImageCouldNotSync       StatusCode = -11
	ViewContainsDuplicates  StatusCode = -12
	InvalidAreaInView       StatusCode = -13
	DirectoryIsNotEmpty     StatusCode = -14
	CannotResolveStorage    StatusCode = -15
)

// String renders a StatusCode for logs and error messages.
func (s StatusCode) String() string {
	switch s {
	case NoError:
		return "NO_ERROR"
	case DoesNotExist:
		return "DOES_NOT_EXIST"
	case ImageIsCorrupted:
		return "IMAGE_IS_CORRUPTED"
	case VersionMismatch:
		return "VERSION_MISMATCH"
	case BadCall:
		return "BAD_CALL"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case CantCreateFile:
		return "CANT_CREATE_FILE"
	case UnknownError:
		return "UNKNOWN_ERROR"
	case ImageTooSmall:
		return "IMAGE_TOO_SMALL"
	case ImageCouldNotSync:
		return "IMAGE_COULD_NOT_SYNC"
	case ViewContainsDuplicates:
		return "VIEW_CONTAINS_DUPLICATES"
	case InvalidAreaInView:
		return "INVALID_AREA_IN_VIEW"
	case DirectoryIsNotEmpty:
		return "DIRECTORY_IS_NOT_EMPTY"
	case CannotResolveStorage:
		return "CANNOT_RESOLVE_STORAGE"
	default:
		return "UNRECOGNIZED_STATUS"
	}
}

// lastStatus is the legacy process-wide status word (spec.md §6/§9). Every
// public ufs operation updates it via SetLastStatus before returning,
// including on success. It exists purely for source-level compatibility
// with callers that still consult a single global scalar instead of the
// richly-typed *errors.UFSError every operation also returns.
var lastStatus atomicStatus

// SetLastStatus updates the process-wide status word.
func SetLastStatus(s StatusCode) { lastStatus.store(s) }

// LastStatus reads the process-wide status word.
func LastStatus() StatusCode { return lastStatus.load() }
