package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType은 에러의 종류를 나타냅니다
type ErrorType string

const (
	// ErrorTypeValidation은 설정 등의 유효성 검증 실패를 나타냅니다
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound는 리소스를 찾을 수 없음을 나타냅니다
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeSystem은 시스템 레벨 에러를 나타냅니다
	ErrorTypeSystem ErrorType = "SYSTEM"

	// ErrorTypeInvalidSelection은 apply 전제조건 위반을 나타냅니다 (상태 변화 없음)
	ErrorTypeInvalidSelection ErrorType = "INVALID_SELECTION"

	// ErrorTypeInvalidState는 현재 트랜잭션 상태에서 허용되지 않는 호출을 나타냅니다
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"

	// ErrorTypeCommandTimeout은 명령 실행 시간 초과를 나타냅니다
	ErrorTypeCommandTimeout ErrorType = "COMMAND_TIMEOUT"

	// ErrorTypeCommandFailed는 명령이 0이 아닌 종료 코드로 끝났음을 나타냅니다
	ErrorTypeCommandFailed ErrorType = "COMMAND_FAILED"

	// ErrorTypeResolutionFailed는 게이트웨이/인덱스 조회 결과가 없음을 나타냅니다
	ErrorTypeResolutionFailed ErrorType = "RESOLUTION_FAILED"

	// ErrorTypeRestoreFailed는 롤백/복원 단계 자체의 실패를 나타냅니다
	ErrorTypeRestoreFailed ErrorType = "RESTORE_FAILED"
)

// DomainError는 도메인 레벨의 에러를 나타냅니다
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error는 error 인터페이스를 구현합니다
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap은 내부 에러를 반환합니다
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is는 에러 비교를 위한 메서드입니다
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// CommandError는 실패한 명령과 그 원본 진단 출력을 그대로 보관합니다
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// CommandLine은 실행된 명령줄을 반환합니다
func (e *CommandError) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Args, " ")
}

// Error는 error 인터페이스를 구현합니다
func (e *CommandError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s: timed out", e.CommandLine())
	}
	diag := strings.TrimSpace(e.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(e.Stdout)
	}
	return fmt.Sprintf("%s: exit code %d: %s", e.CommandLine(), e.ExitCode, diag)
}

// TransactionError는 원래 실패와 그 뒤 롤백에서 수집된 실패들을 함께 보고합니다.
// RolledBack은 복원 단계가 실제로 실행되었는지를 나타냅니다
type TransactionError struct {
	Op            string
	Cause         error
	RestoreErrors []error
	RolledBack    bool
}

// Error는 error 인터페이스를 구현합니다
func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
	if len(e.RestoreErrors) == 0 {
		if e.RolledBack {
			return msg + " (rolled back)"
		}
		return msg
	}
	parts := make([]string, 0, len(e.RestoreErrors))
	for _, re := range e.RestoreErrors {
		parts = append(parts, re.Error())
	}
	return msg + "; rollback incomplete: " + strings.Join(parts, "; ")
}

// Unwrap은 원래 실패와 롤백 실패를 모두 반환합니다
func (e *TransactionError) Unwrap() []error {
	out := make([]error, 0, 1+len(e.RestoreErrors))
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return append(out, e.RestoreErrors...)
}

// 생성자 함수들

// NewValidationError는 유효성 검증 에러를 생성합니다
func NewValidationError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError는 리소스를 찾을 수 없는 에러를 생성합니다
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewSystemError는 시스템 에러를 생성합니다
func NewSystemError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeSystem,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidSelectionError는 선택 전제조건 위반 에러를 생성합니다
func NewInvalidSelectionError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeInvalidSelection,
		Message: message,
	}
}

// NewInvalidStateError는 상태 전제조건 위반 에러를 생성합니다
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeInvalidState,
		Message: message,
	}
}

// NewCommandTimeoutError는 명령 시간 초과 에러를 생성합니다
func NewCommandTimeoutError(cmd *CommandError) *DomainError {
	cmd.TimedOut = true
	return &DomainError{
		Type:    ErrorTypeCommandTimeout,
		Message: "command execution timeout",
		Cause:   cmd,
	}
}

// NewCommandFailedError는 명령 실패 에러를 생성합니다
func NewCommandFailedError(cmd *CommandError) *DomainError {
	return &DomainError{
		Type:    ErrorTypeCommandFailed,
		Message: "command execution failed",
		Cause:   cmd,
	}
}

// NewResolutionFailedError는 조회 실패 에러를 생성합니다
func NewResolutionFailedError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeResolutionFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewRestoreFailedError는 복원 실패 에러를 생성합니다
func NewRestoreFailedError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeRestoreFailed,
		Message: message,
		Cause:   cause,
	}
}

// 에러 타입 확인 헬퍼 함수들

func hasType(err error, t ErrorType) bool {
	return errors.Is(err, &DomainError{Type: t})
}

// TypeOf는 에러 체인에서 처음 발견된 DomainError의 타입을 반환합니다
func TypeOf(err error) (ErrorType, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type, true
	}
	return "", false
}

// AsCommandError는 에러 체인에서 CommandError를 찾습니다
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

// IsValidationError는 유효성 검증 에러인지 확인합니다
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError는 리소스를 찾을 수 없는 에러인지 확인합니다
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsSystemError는 시스템 에러인지 확인합니다
func IsSystemError(err error) bool {
	return hasType(err, ErrorTypeSystem)
}

// IsInvalidSelectionError는 선택 전제조건 위반인지 확인합니다
func IsInvalidSelectionError(err error) bool {
	return hasType(err, ErrorTypeInvalidSelection)
}

// IsInvalidStateError는 상태 전제조건 위반인지 확인합니다
func IsInvalidStateError(err error) bool {
	return hasType(err, ErrorTypeInvalidState)
}

// IsCommandTimeoutError는 명령 시간 초과인지 확인합니다
func IsCommandTimeoutError(err error) bool {
	return hasType(err, ErrorTypeCommandTimeout)
}

// IsCommandFailedError는 명령 실패인지 확인합니다
func IsCommandFailedError(err error) bool {
	return hasType(err, ErrorTypeCommandFailed)
}

// IsResolutionFailedError는 조회 실패인지 확인합니다
func IsResolutionFailedError(err error) bool {
	return hasType(err, ErrorTypeResolutionFailed)
}

// IsRestoreFailedError는 복원 실패인지 확인합니다
func IsRestoreFailedError(err error) bool {
	return hasType(err, ErrorTypeRestoreFailed)
}
