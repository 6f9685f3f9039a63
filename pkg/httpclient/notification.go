package httpclient

// NotifyCode identifies a low-level transport event.
type NotifyCode int

const (
	NotifyResolve NotifyCode = iota + 1
	NotifyConnect
	NotifyAuthRequired
	NotifyMimeTypeIs
	NotifyFileSizeIs
	NotifyRedirected
	NotifyProgress
	NotifyFailure
	NotifyCompleted
)

func (c NotifyCode) String() string {
	switch c {
	case NotifyResolve:
		return "resolve"
	case NotifyConnect:
		return "connect"
	case NotifyAuthRequired:
		return "auth_required"
	case NotifyMimeTypeIs:
		return "mime_type_is"
	case NotifyFileSizeIs:
		return "file_size_is"
	case NotifyRedirected:
		return "redirected"
	case NotifyProgress:
		return "progress"
	case NotifyFailure:
		return "failure"
	case NotifyCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Severity of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityErr
)

// Notification is emitted by transports while a stream is being opened or read.
type Notification struct {
	Code             NotifyCode
	Severity         Severity
	Message          string
	MessageCode      int
	BytesTransferred int64
	BytesMax         int64
	Err              error
}

// NotifyFunc receives transport notifications. A non-nil return aborts the stream.
type NotifyFunc func(Notification) error
