package media

// Result describes how a conversion ended.
type Result string

const (
	ResultOK          Result = "ok"
	ResultClientError Result = "client_error"
	ResultFailed      Result = "failed"
	ResultCanceled    Result = "canceled"
)
