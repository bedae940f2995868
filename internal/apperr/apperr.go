package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error identifier shared by the CLI, the job
// runner and the HTTP API.
type Code string

const (
	CodeNoAssets         Code = "NO_ASSETS"
	CodeNoAudio          Code = "NO_AUDIO"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeCompileDefect    Code = "COMPILATION_DEFECT"
	CodeEncodeFailed     Code = "ENCODE_FAILED"
	CodeStepFailed       Code = "STEP_FAILED"
	CodeJobRunning       Code = "JOB_RUNNING"
	CodeCancelled        Code = "CANCELLED"
)

// Error is the tagged error value propagated between pipeline layers.
type Error struct {
	Code             Code   `json:"code"`
	Message          string `json:"message"`
	MessageLocalized string `json:"message_th,omitempty"`
	Detail           string `json:"detail,omitempty"`
	Recoverable      bool   `json:"recoverable"`
	Err              error  `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy carrying extra diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

var (
	ErrNoAssets = &Error{
		Code:             CodeNoAssets,
		Message:          "no visual assets found for the project",
		MessageLocalized: "ไม่พบรูปภาพในโฟลเดอร์ /input",
		Recoverable:      true,
	}
	ErrNoAudio = &Error{
		Code:             CodeNoAudio,
		Message:          "narration audio is missing or has no duration",
		MessageLocalized: "ไม่พบไฟล์เสียงหรือความยาวเสียงไม่ถูกต้อง",
		Recoverable:      true,
	}
	ErrJobRunning = &Error{
		Code:             CodeJobRunning,
		Message:          "a pipeline job is already running for this project",
		MessageLocalized: "โปรเจกต์นี้กำลังประมวลผลอยู่",
		Recoverable:      true,
	}
	ErrCancelled = &Error{
		Code:             CodeCancelled,
		Message:          "pipeline cancelled",
		MessageLocalized: "ยกเลิกการประมวลผลแล้ว",
		Recoverable:      true,
	}
)

// Input reports a user-fixable problem with the build inputs.
func Input(code Code, msg, localized string) *Error {
	return &Error{Code: code, Message: msg, MessageLocalized: localized, Recoverable: true}
}

// Validation reports a FAIL dry-run report.
func Validation(msg string, problems []string) *Error {
	e := &Error{
		Code:             CodeValidationFailed,
		Message:          msg,
		MessageLocalized: "การตรวจสอบก่อนเรนเดอร์ไม่ผ่าน",
		Recoverable:      true,
	}
	if len(problems) > 0 {
		e.Detail = fmt.Sprintf("%q", problems)
	}
	return e
}

// Defect reports a broken internal invariant. Never recoverable.
func Defect(format string, args ...any) *Error {
	return &Error{
		Code:        CodeCompileDefect,
		Message:     fmt.Sprintf(format, args...),
		Recoverable: false,
	}
}

// Encode wraps a failure of the external encoder process.
func Encode(err error, detail string) *Error {
	return &Error{
		Code:             CodeEncodeFailed,
		Message:          "video encoding failed",
		MessageLocalized: "การเรนเดอร์วิดีโอล้มเหลว",
		Detail:           detail,
		Recoverable:      true,
		Err:              err,
	}
}

// IsRecoverable reports whether err is a tagged error marked recoverable.
// Untagged errors are treated as fatal.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// CodeOf returns the code of the first tagged error in the chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// From returns err as a tagged error, wrapping untagged errors as a
// non-recoverable step failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeStepFailed, Message: err.Error(), Err: err}
}
