package ingest

import "time"

// Level classifies a notice for display.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a transient user-visible notification emitted by the
// subsystem. AutoDismiss of zero means the host should keep the notice
// until the user dismisses it.
type Notice struct {
	Level       Level
	Message     string
	AutoDismiss time.Duration
}

const (
	// defaultDismiss is how long informational and success notices stay
	// up before auto-dismissing.
	defaultDismiss = 3 * time.Second

	// noticeChanSize buffers notices so slow hosts do not stall the
	// event loop. When the buffer is full the oldest behavior is to
	// drop the new notice; a lost toast is preferable to a stuck loop.
	noticeChanSize = 16
)

func infoNotice(msg string) Notice {
	return Notice{Level: LevelInfo, Message: msg, AutoDismiss: defaultDismiss}
}

func successNotice(msg string) Notice {
	return Notice{Level: LevelSuccess, Message: msg, AutoDismiss: defaultDismiss}
}

func errorNotice(msg string) Notice {
	return Notice{Level: LevelError, Message: msg}
}
