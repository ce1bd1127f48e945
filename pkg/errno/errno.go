package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Is matches on Code so that errors.Is(err, ErrReceiptNotFound) survives WithMessage.
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithMessage returns a copy carrying a more specific message
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
var (
	ErrValidation    = Errno{Code: 20001, Message: "Validation failed"}
	ErrStoreNotReady = Errno{Code: 20002, Message: "Store is not initialized"}

	ErrTransactionNotFound = Errno{Code: 20101, Message: "Transaction not found"}
	ErrTransactionExists   = Errno{Code: 20102, Message: "Transaction already exists"}

	ErrReceiptNotFound   = Errno{Code: 20201, Message: "Receipt not found"}
	ErrReceiptTransition = Errno{Code: 20202, Message: "Receipt status transition not allowed"}
	ErrDanglingReceipt   = Errno{Code: 20203, Message: "Receipt references a transaction that does not exist"}

	ErrQueuedPaymentNotFound = Errno{Code: 20301, Message: "Queued payment not found"}
	ErrQueuedPaymentBusy     = Errno{Code: 20302, Message: "Queued payment is being processed"}

	ErrOffline = Errno{Code: 20401, Message: "Device is offline"}

	ErrAdminExists   = Errno{Code: 20501, Message: "Admin user already exists"}
	ErrAdminNotFound = Errno{Code: 20502, Message: "Admin user not found"}
)
