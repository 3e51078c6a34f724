package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUserNotFound       = "User not found"
	ErrMsgLetterNotFound     = "Letter not found"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgMissingLetterID    = "Missing letter id"
)

// Audit action constants
const (
	AuditActionRegister     = "user.register"
	AuditActionLogin        = "user.login"
	AuditActionLoginFailed  = "user.login.failed"
	AuditActionUserCreate   = "user.create"
	AuditActionUserUpdate   = "user.update"
	AuditActionLetterCreate = "letter.create"
	AuditActionApprove      = "letter.approve"
	AuditActionReject       = "letter.reject"
	AuditActionAssign       = "letter.assign"
)
