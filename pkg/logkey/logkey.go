package logkey

// Keys shared by every slog call so log lines can be grepped across packages.
const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
	UserID  = "UserID"
	OrderID = "OrderID"
)
