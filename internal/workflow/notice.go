package workflow

// NoticeKind discriminates the user-visible outcome notice. At most one
// notice is live at a time; error and success can never coexist.
type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is the tagged outcome of the most recent user action.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// ErrorNotice returns an error notice with the given message.
func ErrorNotice(message string) Notice {
	return Notice{Kind: NoticeError, Message: message}
}

// SuccessNotice returns a success notice with the given message.
func SuccessNotice(message string) Notice {
	return Notice{Kind: NoticeSuccess, Message: message}
}

// IsZero reports whether no notice is set.
func (n Notice) IsZero() bool {
	return n.Kind == NoticeNone
}
