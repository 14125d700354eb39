package epp

// Result codes, RFC 5730 section 3.
const (
	CodeOK            = "1000"
	CodeOKPending     = "1001"
	CodeQueueEmpty    = "1300"
	CodeQueueNotEmpty = "1301"
	CodeLogoutOK      = "1500"

	CodeUnknownCommand = "2000"
	CodeCommandSyntax  = "2001"
	// e.g. <logout> before <login>
	CodeCommandUse          = "2002"
	CodeParamMissing        = "2003"
	CodeParamValueRange     = "2004"
	CodeParamValueSyntax    = "2005"
	CodeUnimplementedVer    = "2100"
	CodeUnimplementedCmd    = "2101"
	CodeUnimplementedOption = "2102"
	CodeUnimplementedExt    = "2103"
	CodeBillingFailure      = "2104"
	CodeIneligibleRenew     = "2105"
	CodeIneligibleTransfer  = "2106"

	CodeAuthenticationError = "2200"
	CodeAuthorizationError  = "2201"
	CodeInvalidAuthInfo     = "2202"

	CodeObjectPendingTransfer    = "2300"
	CodeObjectNotPendingTransfer = "2301"
	CodeObjectExists             = "2302"
	CodeObjectDoesNotExist       = "2303"
	CodeObjectStatus             = "2304"
	CodeObjectAssociation        = "2305"
	CodeParamValuePolicy         = "2306"
	CodeUnimplementedObjService  = "2307"
	CodeDataManagementPolicy     = "2308"

	// The server may retry these.
	CodeCommandFailed = "2400"

	// The server closes the session after sending these.
	CodeCommandFailedClosing = "2500"
	CodeAuthFailedClosing    = "2501"
	CodeSessionLimitExceeded = "2502"
)

// IsSuccessCode reports whether code is in the 1xxx range.
func IsSuccessCode(code string) bool {
	return len(code) == 4 && code[0] == '1'
}

// IsClosingCode reports whether the server ends the session after code.
func IsClosingCode(code string) bool {
	switch code {
	case CodeCommandFailedClosing, CodeAuthFailedClosing, CodeSessionLimitExceeded:
		return true
	}
	return false
}
