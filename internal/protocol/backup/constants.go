package backup

// Version is the protocol version stamped on every response. Request
// versions are carried through but not enforced against a known set; the
// field is a forward-compatibility placeholder.
const Version uint8 = 1

// Op selects the operation a request asks for.
type Op uint8

const (
	OpSave    Op = 100
	OpRestore Op = 200
	OpDelete  Op = 201
	OpList    Op = 202
)

// validOp reports whether value is a recognized opcode.
func validOp(value uint8) bool {
	switch Op(value) {
	case OpSave, OpRestore, OpDelete, OpList:
		return true
	}
	return false
}

func (o Op) String() string {
	switch o {
	case OpSave:
		return "SAVE"
	case OpRestore:
		return "RESTORE"
	case OpDelete:
		return "DELETE"
	case OpList:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// Status selects the outcome a response reports.
type Status uint16

const (
	StatusSuccessRestore Status = 210
	StatusSuccessList    Status = 211

	// StatusSuccessSaveOrDelete is shared by Save and Delete successes,
	// a deliberate economy of the original protocol.
	StatusSuccessSaveOrDelete Status = 212

	StatusErrorNoFile   Status = 1001
	StatusErrorNoClient Status = 1002
	StatusErrorGeneral  Status = 1003
)

func (s Status) String() string {
	switch s {
	case StatusSuccessRestore:
		return "SUCCESS_RESTORE"
	case StatusSuccessList:
		return "SUCCESS_LIST"
	case StatusSuccessSaveOrDelete:
		return "SUCCESS_SAVE_OR_DELETE"
	case StatusErrorNoFile:
		return "ERROR_NO_FILE"
	case StatusErrorNoClient:
		return "ERROR_NO_CLIENT"
	case StatusErrorGeneral:
		return "ERROR_GENERAL"
	default:
		return "UNKNOWN"
	}
}
