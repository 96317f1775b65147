package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Общие ошибки бизнес-логики (используются фабриками)
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и Авторизация
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	CodeTooManyCalls ErrorCode = "RATE_LIMITED"
)

// LimitReason - машинно-читаемая причина отказа в загрузке.
// Отдается клиенту как есть, UI по ней предлагает апгрейд.
type LimitReason string

const (
	ReasonTypeNotAllowed  LimitReason = "type-not-allowed"
	ReasonSizeExceeded    LimitReason = "size-exceeded"
	ReasonStorageExceeded LimitReason = "storage-exceeded"
	ReasonCountExceeded   LimitReason = "count-exceeded"
)
